// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package user_test

import (
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestCreateUser(t *testing.T) {
	unittest.PrepareTestEnv(t)

	u := &user_model.User{Name: " Alice ", Email: "Alice@Example.com"}
	require.NoError(t, user_model.CreateUser(db.DefaultContext, u))
	assert.Equal(t, "alice", u.LowerName)
	assert.Equal(t, user_model.NotifyAllOwnedProjects, u.NotifyLevel)

	err := user_model.CreateUser(db.DefaultContext, &user_model.User{Name: "ALICE"})
	assert.True(t, user_model.IsErrUserAlreadyExist(err))

	got, err := user_model.GetUserByEmail(db.DefaultContext, "alice@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = user_model.GetUserByID(db.DefaultContext, 999)
	assert.True(t, user_model.IsErrUserNotExist(err))

	users, err := user_model.GetUsersMapByIDs(db.DefaultContext, []int64{u.ID, 0, u.ID, 999})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGhostUser(t *testing.T) {
	ghost := user_model.NewGhostUser("jira:bob")
	assert.True(t, ghost.IsGhost())
	assert.Equal(t, "jira:bob", ghost.DisplayName())
	assert.Equal(t, user_model.GhostUserName, user_model.NewGhostUser("").Name)
}

func TestParseNotifyLevel(t *testing.T) {
	l, err := user_model.ParseNotifyLevel(" Only_Watching ")
	require.NoError(t, err)
	assert.Equal(t, user_model.NotifyOnlyWatching, l)
	assert.Equal(t, "no_events", user_model.NotifyNoEvents.String())

	_, err = user_model.ParseNotifyLevel("sometimes")
	assert.Error(t, err)
}
