// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project_test

import (
	"testing"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

func TestInitProject(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "Sample Project", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))
	assert.Equal(t, "sample-project", p.Slug)

	p2 := &project_model.Project{Name: "Sample project", OwnerID: 1}
	require.NoError(t, project_model.CreateProject(ctx, p2))
	assert.Equal(t, "sample-project-1", p2.Slug)

	statuses, err := project_model.GetStatuses(ctx, p.ID, project_model.KindUserStory)
	require.NoError(t, err)
	require.Len(t, statuses, 6)
	assert.Equal(t, "New", statuses[0].Name)
	assert.Len(t, statuses.ClosedIDs(), 2)

	def, err := project_model.GetDefaultStatus(ctx, p.ID, project_model.KindTask)
	require.NoError(t, err)
	assert.Equal(t, "New", def.Name)
	assert.False(t, def.IsClosed)

	unknown, err := project_model.GetUnknownPoints(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project_model.UnknownPointsName, unknown.Name)
	assert.Nil(t, unknown.Value)

	roles, err := project_model.GetComputableRoles(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 4)

	prio, err := project_model.GetDefaultCatalogEntry[project_model.Priority](ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Low", prio.Name)

	_, err = project_model.GetCatalogEntry[project_model.Severity](ctx, p2.ID, prio.ID)
	assert.True(t, project_model.IsErrCatalogEntryNotExist(err))
}

func TestGetOrCreateStatusByName(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "statuses", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))

	s, created, err := project_model.GetOrCreateStatusByName(ctx, p.ID, project_model.KindTask, "in PROGRESS", false)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "In progress", s.Name)

	s, created, err = project_model.GetOrCreateStatusByName(ctx, p.ID, project_model.KindTask, "Blocked", false)
	require.NoError(t, err)
	assert.True(t, created)
	assert.EqualValues(t, 6, s.SortOrder)
	assert.False(t, s.IsClosed)
}

func TestRefCounterMirror(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "refs", OwnerID: 1}
	require.NoError(t, project_model.CreateProject(ctx, p))

	require.NoError(t, project_model.SetLastRef(ctx, p.ID, project_model.KindUserStory, 5))
	require.NoError(t, project_model.SetLastRef(ctx, p.ID, project_model.KindUserStory, 3))
	p, err := project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, p.LastRef(project_model.KindUserStory))

	require.NoError(t, project_model.ResetLastRef(ctx, p.ID, project_model.KindUserStory, 2))
	p, err = project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.LastUSRef)

	assert.Error(t, project_model.SetLastRef(ctx, p.ID, project_model.KindMilestone, 1))
}

func TestPermissions(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "perms", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))

	roles, err := project_model.GetRoles(ctx, p.ID)
	require.NoError(t, err)
	var stakeholder *project_model.Role
	for _, r := range roles {
		if r.Name == "Stakeholder" {
			stakeholder = r
		}
	}
	require.NotNil(t, stakeholder)

	_, err = project_model.AddMember(ctx, p.ID, 2, stakeholder.ID, false)
	require.NoError(t, err)

	modifyUS := project_model.PermissionName(project_model.ActionModify, project_model.KindUserStory)
	assert.Equal(t, "modify_us", modifyUS)

	ok, err := project_model.HasPermission(ctx, p, 1, modifyUS)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = project_model.HasPermission(ctx, p, 2, modifyUS)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = project_model.HasPermission(ctx, p, 2, project_model.PermissionName(project_model.ActionView, project_model.KindTask))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = project_model.HasPermission(ctx, p, 3, modifyUS)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvitation(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "invites", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))
	roles, err := project_model.GetRoles(ctx, p.ID)
	require.NoError(t, err)

	m, err := project_model.InviteMember(ctx, p.ID, roles[0].ID, 1, "bob@example.com")
	require.NoError(t, err)
	assert.True(t, m.IsPending())
	assert.NotEmpty(t, m.Token)

	m, err = project_model.AcceptInvitation(ctx, m.Token, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 7, m.UserID)

	_, err = project_model.AcceptInvitation(ctx, m.Token, 8)
	assert.True(t, project_model.IsErrMembershipNotExist(err))

	ids, err := project_model.GetMemberUserIDs(ctx, p.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 7}, ids)
}

func TestTagColors(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	assert.Equal(t, project_model.TagColor("backend"), project_model.TagColor("backend"))

	p := &project_model.Project{Name: "tags", OwnerID: 1}
	require.NoError(t, project_model.CreateProject(ctx, p))

	changed, err := project_model.AssignTagColors(ctx, p, []string{"backend", "ui"})
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = project_model.AssignTagColors(ctx, p, []string{"ui"})
	require.NoError(t, err)
	assert.False(t, changed)

	p.TagsColors["ui"] = "#000000"
	require.NoError(t, project_model.RecomputeTagColors(ctx, p, []string{"ui", "api"}))
	p, err = project_model.GetProjectByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ui": "#000000", "api": project_model.TagColor("api")}, p.TagsColors)
}

func TestDeleteProjectRows(t *testing.T) {
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext

	p := &project_model.Project{Name: "gone", OwnerID: 1}
	require.NoError(t, project_model.InitProject(ctx, p))
	require.NoError(t, project_model.DeleteProjectRows(ctx, p.ID))

	_, err := project_model.GetProjectByID(ctx, p.ID)
	assert.True(t, project_model.IsErrProjectNotExist(err))
	statuses, err := project_model.GetStatuses(ctx, p.ID, project_model.KindIssue)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
