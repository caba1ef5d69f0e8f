// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile_test

import (
	"testing"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func newProject(t *testing.T, name string) *project_model.Project {
	t.Helper()
	p := &project_model.Project{Name: name, OwnerID: 1}
	require.NoError(t, project_model.InitProject(db.DefaultContext, p))
	return p
}

func TestAllocateRef(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "refs")

	ref, err := agile_model.AllocateRef(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ref)

	// a row imported with ref 2 is skipped
	require.NoError(t, agile_model.InsertItem(ctx, &agile_model.UserStory{ProjectID: p.ID, Ref: 2, Subject: "imported"}, false))
	ref, err = agile_model.AllocateRef(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ref)

	// counters are per kind
	ref, err = agile_model.AllocateRef(ctx, p.ID, project_model.KindTask)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ref)

	p, err = project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.LastUSRef)
	assert.EqualValues(t, 1, p.LastTaskRef)

	_, err = agile_model.AllocateRef(ctx, p.ID, project_model.KindMilestone)
	assert.True(t, agile_model.IsErrValidation(err))
}

func TestRebuildRefCounters(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "rebuild")

	for _, ref := range []int64{4, 9, 7} {
		require.NoError(t, agile_model.InsertItem(ctx, &agile_model.Issue{ProjectID: p.ID, Ref: ref, Subject: "i"}, false))
	}
	require.NoError(t, agile_model.RebuildRefCounters(ctx, p.ID))

	p, err := project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 9, p.LastIssueRef)

	ref, err := agile_model.AllocateRef(ctx, p.ID, project_model.KindIssue)
	require.NoError(t, err)
	assert.EqualValues(t, 10, ref)
}

func TestUpdateItemColsVersion(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "versions")

	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "first"}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))
	assert.EqualValues(t, 1, us.Version)

	stale := *us
	us.Subject = "second"
	require.NoError(t, agile_model.UpdateItemCols(ctx, us, "subject"))
	assert.EqualValues(t, 2, us.Version)

	stale.Subject = "lost"
	err := agile_model.UpdateItemCols(ctx, &stale, "subject")
	assert.True(t, agile_model.IsErrStaleObject(err))
	assert.EqualValues(t, 1, stale.Version)

	got, err := agile_model.GetUserStoryByID(ctx, us.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Subject)
	assert.EqualValues(t, 2, got.Version)

	item, err := agile_model.GetItem(ctx, project_model.KindUserStory, us.ID)
	require.NoError(t, err)
	assert.Equal(t, us.ID, item.GetID())

	require.NoError(t, agile_model.DeleteItem(ctx, &stale))
	_, err = agile_model.GetUserStoryByID(ctx, us.ID)
	assert.True(t, agile_model.IsErrNotExist(err))
}

func TestSyncRolePoints(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "points")

	us := &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "estimate me"}
	require.NoError(t, agile_model.InsertItem(ctx, us, false))
	require.NoError(t, agile_model.SyncRolePoints(ctx, us))

	roles, err := project_model.GetComputableRoles(ctx, p.ID)
	require.NoError(t, err)
	unknown, err := project_model.GetUnknownPoints(ctx, p.ID)
	require.NoError(t, err)

	points, err := agile_model.GetRolePoints(ctx, us.ID)
	require.NoError(t, err)
	require.Len(t, points, len(roles))
	for _, r := range roles {
		assert.Equal(t, unknown.ID, points[r.ID])
	}

	five, err := project_model.GetOrCreatePointsByValue(ctx, p.ID, 5)
	require.NoError(t, err)
	three, err := project_model.GetOrCreatePointsByValue(ctx, p.ID, 3)
	require.NoError(t, err)
	require.NoError(t, agile_model.SetRolePoints(ctx, us.ID, roles[0].ID, five.ID))
	require.NoError(t, agile_model.SetRolePoints(ctx, us.ID, roles[1].ID, three.ID))
	total, err := agile_model.TotalPoints(ctx, us.ID)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, total, 0.0001)

	// a new computable role shows up with the unknown estimation
	role := &project_model.Role{ProjectID: p.ID, Name: "QA", Computable: true}
	require.NoError(t, project_model.CreateRole(ctx, role))
	require.NoError(t, agile_model.AddRoleToUserStories(ctx, p.ID, role.ID))
	points, err = agile_model.GetRolePoints(ctx, us.ID)
	require.NoError(t, err)
	assert.Equal(t, unknown.ID, points[role.ID])

	// a removed role loses its estimations
	require.NoError(t, project_model.DeleteRoleRow(ctx, p.ID, roles[0].ID, role.ID))
	require.NoError(t, agile_model.SyncRolePoints(ctx, us))
	points, err = agile_model.GetRolePoints(ctx, us.ID)
	require.NoError(t, err)
	assert.NotContains(t, points, roles[0].ID)
	assert.Len(t, points, len(roles))
}

func TestRelatedUserStories(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "epics")
	other := newProject(t, "other")

	epic := &agile_model.Epic{ProjectID: p.ID, Ref: 1, Subject: "epic"}
	require.NoError(t, agile_model.InsertItem(ctx, epic, false))
	stories := make([]*agile_model.UserStory, 3)
	for i := range stories {
		stories[i] = &agile_model.UserStory{ProjectID: p.ID, Ref: int64(i + 1), Subject: "us"}
		require.NoError(t, agile_model.InsertItem(ctx, stories[i], false))
		_, err := agile_model.AddRelatedUserStory(ctx, epic, stories[i])
		require.NoError(t, err)
	}

	_, err := agile_model.AddRelatedUserStory(ctx, epic, stories[0])
	assert.True(t, agile_model.IsErrValidation(err))

	foreign := &agile_model.UserStory{ProjectID: other.ID, Ref: 1, Subject: "foreign"}
	require.NoError(t, agile_model.InsertItem(ctx, foreign, false))
	_, err = agile_model.AddRelatedUserStory(ctx, epic, foreign)
	assert.True(t, agile_model.IsErrPreconditionFailed(err))

	require.NoError(t, agile_model.MoveRelatedUserStory(ctx, epic.ID, stories[2].ID, 1))
	related, err := agile_model.GetRelatedUserStories(ctx, epic.ID)
	require.NoError(t, err)
	require.Len(t, related, 3)
	assert.Equal(t, []int64{stories[2].ID, stories[0].ID, stories[1].ID},
		[]int64{related[0].UserStoryID, related[1].UserStoryID, related[2].UserStoryID})

	require.NoError(t, agile_model.RemoveRelatedUserStory(ctx, epic.ID, stories[0].ID))
	related, err = agile_model.GetRelatedUserStories(ctx, epic.ID)
	require.NoError(t, err)
	assert.Len(t, related, 2)
}

func TestMilestoneName(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "sprints")

	m := &agile_model.Milestone{ProjectID: p.ID, Name: " Sprint 1 "}
	require.NoError(t, agile_model.CheckMilestoneName(ctx, m))
	assert.Equal(t, "sprint-1", m.Slug)
	require.NoError(t, agile_model.InsertItem(ctx, m, false))

	dup := &agile_model.Milestone{ProjectID: p.ID, Name: "Sprint 1"}
	assert.True(t, agile_model.IsErrValidation(agile_model.CheckMilestoneName(ctx, dup)))

	n, err := agile_model.CountMilestoneItems(ctx, m.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetProjectTags(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	p := newProject(t, "tags")

	require.NoError(t, agile_model.InsertItem(ctx, &agile_model.UserStory{ProjectID: p.ID, Ref: 1, Subject: "a", Tags: []string{"ui", "api"}}, false))
	require.NoError(t, agile_model.InsertItem(ctx, &agile_model.Task{ProjectID: p.ID, Ref: 1, Subject: "b", Tags: []string{"db"}}, false))
	require.NoError(t, agile_model.InsertItem(ctx, &agile_model.Issue{ProjectID: p.ID, Ref: 1, Subject: "c"}, false))

	tags, err := agile_model.GetProjectTags(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "db", "ui"}, tags)
}
