// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package doctor

import (
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func prepareProject(t *testing.T) *project_model.Project {
	unittest.PrepareTestEnv(t)
	owner := &user_model.User{Name: "owner", Email: "owner@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(db.DefaultContext, owner))
	p := &project_model.Project{Name: "Clinic", OwnerID: owner.ID}
	require.NoError(t, project_model.InitProject(db.DefaultContext, p))
	return p
}

func statusID(t *testing.T, projectID int64, kind project_model.ItemKind, closed bool) int64 {
	statuses, err := project_model.GetStatuses(db.DefaultContext, projectID, kind)
	require.NoError(t, err)
	for _, s := range statuses {
		if s.IsClosed == closed {
			return s.ID
		}
	}
	t.Fatalf("no %s status with closed=%v", kind, closed)
	return 0
}

func TestRegisteredChecks(t *testing.T) {
	names := make([]string, 0, len(Checks()))
	for _, c := range Checks() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"ref-counters", "task-milestones", "closed-flags"}, names)
	assert.Len(t, DefaultChecks(), 3)

	selected, err := GetChecks([]string{"closed-flags"})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "closed-flags", selected[0].Name)

	_, err = GetChecks([]string{"closed-flags", "nope"})
	assert.ErrorContains(t, err, "nope")

	assert.Panics(t, func() { Register(&Check{Name: "ref-counters"}) })
}

func TestCheckRefCounters(t *testing.T) {
	p := prepareProject(t)
	ctx := db.DefaultContext
	logger := log.GetLogger(log.DEFAULT)

	require.NoError(t, checkRefCounters(ctx, logger, false))

	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 7, Subject: "imported", StatusID: statusID(t, p.ID, project_model.KindUserStory, false)}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))

	assert.Error(t, checkRefCounters(ctx, logger, false))
	counter, err := db.GetMaxResourceIndex(ctx, p.ID, string(project_model.KindUserStory))
	require.NoError(t, err)
	assert.Zero(t, counter, "a dry run leaves the counter alone")

	require.NoError(t, checkRefCounters(ctx, logger, true))
	require.NoError(t, checkRefCounters(ctx, logger, false))

	ref, err := agile_model.AllocateRef(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)
	assert.EqualValues(t, 8, ref)
}

func TestCheckClosedFlags(t *testing.T) {
	p := prepareProject(t)
	ctx := db.DefaultContext
	logger := log.GetLogger(log.DEFAULT)

	m := &agile_model.Milestone{ProjectID: p.ID, Name: "Sprint", Slug: "sprint"}
	require.NoError(t, agile_model.InsertItem(ctx, m, false))
	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "done but open", MilestoneID: m.ID, StatusID: statusID(t, p.ID, project_model.KindUserStory, true)}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))

	assert.Error(t, checkClosedFlags(ctx, logger, false))
	reloaded, err := agile_model.GetUserStoryByID(ctx, us.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsClosed)

	require.NoError(t, checkClosedFlags(ctx, logger, true))
	reloaded, err = agile_model.GetUserStoryByID(ctx, us.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsClosed)
	assert.NotZero(t, reloaded.FinishDate)
	milestone, err := agile_model.GetMilestoneByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, milestone.Closed)

	entries, err := history_model.GetEntries(ctx, history_model.Key(project_model.KindUserStory, us.ID))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActorName, entries[0].UserName)
	assert.Zero(t, entries[0].UserID)
	assert.Contains(t, entries[0].Diff, "is_closed")

	require.NoError(t, checkClosedFlags(ctx, logger, false))
}

func TestCheckTaskMilestones(t *testing.T) {
	p := prepareProject(t)
	ctx := db.DefaultContext
	logger := log.GetLogger(log.DEFAULT)

	m := &agile_model.Milestone{ProjectID: p.ID, Name: "Sprint", Slug: "sprint"}
	require.NoError(t, agile_model.InsertItem(ctx, m, false))
	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "story", MilestoneID: m.ID, StatusID: statusID(t, p.ID, project_model.KindUserStory, false)}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))
	task := &agile_model.Task{ProjectID: p.ID, Ref: 2, UserStoryID: us.ID, Subject: "stray", StatusID: statusID(t, p.ID, project_model.KindTask, false)}
	require.NoError(t, agile_model.InsertItem(ctx, task, false))

	assert.Error(t, checkTaskMilestones(ctx, logger, false))
	require.NoError(t, checkTaskMilestones(ctx, logger, true))

	reloaded, err := agile_model.GetItem(ctx, project_model.KindTask, task.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, reloaded.(*agile_model.Task).MilestoneID)
	require.NoError(t, checkTaskMilestones(ctx, logger, false))
}
