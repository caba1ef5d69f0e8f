// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"strconv"
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestDiff(t *testing.T) {
	pre := history_model.Snapshot{
		"subject": "a",
		"tags":    []any{"back", "ux"},
		"points":  map[string]any{"1": float64(10), "2": float64(11)},
		"status":  float64(3),
	}
	post := history_model.Snapshot{
		"subject": "b",
		"tags":    []any{"front", "ux"},
		"points":  map[string]any{"1": float64(10), "2": float64(12)},
		"status":  float64(3),
	}
	diff := Diff(pre, post)
	assert.Len(t, diff, 3)
	assert.Equal(t, history_model.Change{"a", "b"}, diff["subject"])
	assert.Equal(t, history_model.Change{[]string{"back"}, []string{"front"}}, diff["tags"])
	assert.Equal(t, history_model.Change{map[string]any{"2": float64(11)}, map[string]any{"2": float64(12)}}, diff["points"])

	assert.Equal(t, post, Apply(pre, diff))

	created := Diff(nil, post)
	assert.Equal(t, history_model.Change{nil, "b"}, created["subject"])
	deleted := Diff(pre, nil)
	assert.Equal(t, history_model.Change{"a", nil}, deleted["subject"])
}

func TestDescriptionDiff(t *testing.T) {
	html := DescriptionDiff("the quick fox", "the slow fox")
	assert.Contains(t, html, "<del")
	assert.Contains(t, html, "<ins")
	assert.Contains(t, html, "slow")
}

func TestRecordAndReconstruct(t *testing.T) {
	unittest.PrepareTestEnv(t)
	defer test.MockVariableValue(&setting.History.SnapshotInterval, 3)()
	ctx := db.DefaultContext

	owner := &user_model.User{Name: "owner", Email: "owner@example.com"}
	require.NoError(t, user_model.CreateUser(ctx, owner))
	p := &project_model.Project{Name: "history", OwnerID: owner.ID}
	require.NoError(t, project_model.InitProject(ctx, p))
	statuses, err := project_model.GetStatuses(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)

	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "first", StatusID: statuses[0].ID, OwnerID: owner.ID, Tags: []string{"ux"}}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))
	require.NoError(t, agile_model.SyncRolePoints(ctx, us))

	actor := ActorOf(owner)
	created, err := Record(ctx, nil, us, RecordOptions{Actor: actor})
	require.NoError(t, err)
	assert.True(t, created.IsSnapshot)
	assert.Equal(t, history_model.EntryTypeCreate, created.Type)
	assert.EqualValues(t, 1, created.Version)

	edits := []func(us *agile_model.UserStory){
		func(us *agile_model.UserStory) { us.Subject = "second" },
		func(us *agile_model.UserStory) { us.Tags = []string{"back", "ux"} },
		func(us *agile_model.UserStory) { us.StatusID = statuses[1].ID },
		func(us *agile_model.UserStory) { us.Description = "now described" },
	}
	var last *history_model.Entry
	for _, edit := range edits {
		pre := *us
		pre.Tags = append([]string(nil), us.Tags...)
		edit(us)
		require.NoError(t, agile_model.UpdateItemCols(ctx, us, "subject", "tags", "status_id", "description"))
		last, err = Record(ctx, &pre, us, RecordOptions{Actor: actor, Comment: "edit"})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 5, last.Version)
	assert.NotEmpty(t, last.DescriptionDiff)

	entries, err := GetHistory(ctx, project_model.KindUserStory, us.ID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	// the third change is the third entry after the creation snapshot
	assert.False(t, entries[1].IsSnapshot)
	assert.False(t, entries[2].IsSnapshot)
	assert.True(t, entries[3].IsSnapshot)
	assert.Equal(t, statuses[1].Name, entries[3].Values["status"][strconv.FormatInt(statuses[1].ID, 10)])

	current, err := Freeze(ctx, us)
	require.NoError(t, err)
	state, err := Reconstruct(ctx, project_model.KindUserStory, us.ID, last.ID)
	require.NoError(t, err)
	assert.Equal(t, current, state)

	state, err = Reconstruct(ctx, project_model.KindUserStory, us.ID, entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "second", state["subject"])
	assert.Equal(t, []any{"ux"}, state["tags"])
}

func TestRecordGhostActor(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "ghosts", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))
	issue := &agile_model.Issue{ProjectID: p.ID, Ref: 1, Subject: "imported"}
	require.NoError(t, agile_model.InsertItem(ctx, issue, false))

	e, err := Record(ctx, nil, issue, RecordOptions{Actor: ActorOf(user_model.NewGhostUser("jira-bob"))})
	require.NoError(t, err)
	assert.EqualValues(t, 0, e.UserID)
	assert.Equal(t, "jira-bob", e.UserName)
}
