// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package notify

import (
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	watch_model "github.com/taigaio/taiga-back-sub001/models/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func names(users []*user_model.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Name)
	}
	return out
}

func TestRecipients(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	newUser := func(name string, level user_model.NotifyLevel, byMe bool) *user_model.User {
		u := &user_model.User{Name: name, Email: name + "@example.com", NotifyLevel: level, NotifyChangesByMe: byMe}
		require.NoError(t, user_model.CreateUser(ctx, u))
		return u
	}
	projectOwner := newUser("po", user_model.NotifyAllOwnedProjects, false)
	owner := newUser("owner", user_model.NotifyOnlyOwner, false)
	assignee := newUser("assignee", user_model.NotifyOnlyAssigned, false)
	watcher := newUser("watcher", user_model.NotifyOnlyWatching, false)
	silent := newUser("silent", user_model.NotifyNoEvents, false)
	muted := newUser("muted", user_model.NotifyAllOwnedProjects, false)

	p := &project_model.Project{Name: "notify", OwnerID: projectOwner.ID}
	require.NoError(t, project_model.InitProject(ctx, p))
	task := &agile_model.Task{ProjectID: p.ID, Ref: 1, Subject: "t", OwnerID: owner.ID, AssignedToID: assignee.ID}
	require.NoError(t, agile_model.InsertItem(ctx, task, false))

	require.NoError(t, AutoWatch(ctx, task))
	for _, u := range []*user_model.User{watcher, silent} {
		require.NoError(t, watch_model.CreateOrUpdateWatchMode(ctx, u.ID, p.ID, project_model.KindTask, task.ID, watch_model.ModeNormal))
	}
	require.NoError(t, watch_model.CreateOrUpdateWatchMode(ctx, muted.ID, p.ID, project_model.KindTask, task.ID, watch_model.ModeDont))

	recipients, err := Recipients(ctx, p, task, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"po", "owner", "assignee", "watcher"}, names(recipients))

	// the actor is left out unless they asked to hear about their own changes
	recipients, err = Recipients(ctx, p, task, projectOwner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner", "assignee", "watcher"}, names(recipients))

	projectOwner.NotifyChangesByMe = true
	require.NoError(t, user_model.UpdateUserCols(ctx, projectOwner, "notify_changes_by_me"))
	recipients, err = Recipients(ctx, p, task, projectOwner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"po", "owner", "assignee", "watcher"}, names(recipients))
}
