// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation_test

import (
	"context"
	"slices"
	"strconv"
	"testing"
	"time"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/models/unittest"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
	"github.com/taigaio/taiga-back-sub001/services/mutation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"xorm.io/builder"
)

func TestMain(m *testing.M) {
	unittest.MainTest(m)
}

type fixture struct {
	ctx     context.Context
	project *project_model.Project
	owner   *user_model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	unittest.PrepareTestEnv(t)
	ctx := db.DefaultContext
	owner := &user_model.User{Name: "owner", Email: "owner@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(ctx, owner))
	p := &project_model.Project{Name: "Apollo", OwnerID: owner.ID}
	require.NoError(t, project_model.InitProject(ctx, p))
	return &fixture{ctx: ctx, project: p, owner: owner}
}

func (f *fixture) status(t *testing.T, kind project_model.ItemKind, name string) int64 {
	t.Helper()
	statuses, err := project_model.GetStatuses(f.ctx, f.project.ID, kind)
	require.NoError(t, err)
	for _, s := range statuses {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("no %s status %q", kind, name)
	return 0
}

func (f *fixture) apply(req *mutation.Request) (*mutation.Result, error) {
	if req.ActorID == 0 {
		req.ActorID = f.owner.ID
	}
	req.ProjectID = f.project.ID
	return mutation.ApplyMutation(f.ctx, req)
}

func (f *fixture) create(t *testing.T, kind project_model.ItemKind, patch map[string]any) agile_model.Item {
	t.Helper()
	res, err := f.apply(&mutation.Request{Op: mutation.OpCreate, Kind: kind, Patch: patch})
	require.NoError(t, err)
	return res.Entity
}

func (f *fixture) update(t *testing.T, item agile_model.Item, patch map[string]any) *mutation.Result {
	t.Helper()
	res, err := f.apply(&mutation.Request{
		Op: mutation.OpUpdate, Kind: item.ItemKind(), ID: item.GetID(),
		ExpectedVersion: item.GetVersion(), Patch: patch,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) story(t *testing.T, id int64) *agile_model.UserStory {
	t.Helper()
	us, err := agile_model.GetUserStoryByID(f.ctx, id)
	require.NoError(t, err)
	return us
}

func (f *fixture) milestone(t *testing.T, id int64) *agile_model.Milestone {
	t.Helper()
	m, err := agile_model.GetMilestoneByID(f.ctx, id)
	require.NoError(t, err)
	return m
}

func TestAutoCloseAndReopenStory(t *testing.T) {
	f := newFixture(t)
	taskClosed := f.status(t, project_model.KindTask, "Closed")
	taskNew := f.status(t, project_model.KindTask, "New")

	us := f.create(t, project_model.KindUserStory, map[string]any{
		"subject": "Login", "status": f.status(t, project_model.KindUserStory, "Done"),
	}).(*agile_model.UserStory)
	assert.True(t, us.IsClosed, "a closed story without tasks is closed")

	tasks := make([]*agile_model.Task, 3)
	for i := range tasks {
		tasks[i] = f.create(t, project_model.KindTask, map[string]any{
			"subject": "task " + strconv.Itoa(i), "user_story": us.ID,
		}).(*agile_model.Task)
	}
	us = f.story(t, us.ID)
	assert.False(t, us.IsClosed)
	assert.Zero(t, us.FinishDate)

	for _, task := range tasks[:2] {
		f.update(t, task, map[string]any{"status": taskClosed})
		assert.False(t, f.story(t, us.ID).IsClosed)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	defer timeutil.MockSet(now)()
	res := f.update(t, tasks[2], map[string]any{"status": taskClosed})
	assert.Equal(t, 1, res.CascadeWrites)
	closedTask := res.Entity.(*agile_model.Task)
	assert.Equal(t, timeutil.FromTime(now), closedTask.FinishedDate)
	us = f.story(t, us.ID)
	assert.True(t, us.IsClosed)
	assert.Equal(t, timeutil.FromTime(now), us.FinishDate)

	// reopening one task reopens the story
	f.update(t, closedTask, map[string]any{"status": taskNew})
	us = f.story(t, us.ID)
	assert.False(t, us.IsClosed)
	assert.Zero(t, us.FinishDate)

	// the derived writes are in the history of the story
	entries, err := mutation.GetHistory(f.ctx, project_model.KindUserStory, us.ID)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, history_model.EntryTypeCreate, entries[0].Type)
	for _, e := range entries[1:] {
		assert.Contains(t, e.Diff, "is_closed")
		assert.Equal(t, f.owner.ID, e.UserID)
	}
	assert.EqualValues(t, 4, us.Version)

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestReparentTask(t *testing.T) {
	f := newFixture(t)
	m1 := f.create(t, project_model.KindMilestone, map[string]any{"name": "Sprint 1"})
	m2 := f.create(t, project_model.KindMilestone, map[string]any{"name": "Sprint 2"})
	u1 := f.create(t, project_model.KindUserStory, map[string]any{
		"subject": "u1", "milestone": m1.GetID(), "status": f.status(t, project_model.KindUserStory, "Done"),
	})
	taskClosed := f.status(t, project_model.KindTask, "Closed")
	t1 := f.create(t, project_model.KindTask, map[string]any{"subject": "t1", "user_story": u1.GetID(), "status": taskClosed})
	f.create(t, project_model.KindTask, map[string]any{"subject": "t2", "user_story": u1.GetID(), "status": taskClosed})
	u2 := f.create(t, project_model.KindUserStory, map[string]any{"subject": "u2", "milestone": m2.GetID()})
	f.create(t, project_model.KindTask, map[string]any{"subject": "t3", "user_story": u2.GetID()})

	assert.Equal(t, m1.GetID(), t1.(*agile_model.Task).MilestoneID)
	assert.True(t, f.milestone(t, m1.GetID()).Closed)

	res := f.update(t, t1, map[string]any{"user_story": u2.GetID()})
	moved := res.Entity.(*agile_model.Task)
	assert.Equal(t, m2.GetID(), moved.MilestoneID)
	assert.Equal(t, t1.GetVersion()+1, moved.Version)

	assert.True(t, f.story(t, u1.GetID()).IsClosed)
	assert.False(t, f.story(t, u2.GetID()).IsClosed)
	assert.True(t, f.milestone(t, m1.GetID()).Closed)
	assert.False(t, f.milestone(t, m2.GetID()).Closed)

	// an explicit milestone of a task must match its story
	_, err := f.apply(&mutation.Request{
		Op: mutation.OpUpdate, Kind: project_model.KindTask, ID: moved.ID,
		ExpectedVersion: moved.Version, Patch: map[string]any{"milestone": m1.GetID()},
	})
	assert.Equal(t, mutation.KindPreconditionFailed, mutation.KindOf(err))

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestStoryMilestoneCascade(t *testing.T) {
	f := newFixture(t)
	m1 := f.create(t, project_model.KindMilestone, map[string]any{"name": "Sprint 1"})
	m2 := f.create(t, project_model.KindMilestone, map[string]any{"name": "Sprint 2"})
	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "u", "milestone": m1.GetID()})
	task := f.create(t, project_model.KindTask, map[string]any{"subject": "t", "user_story": us.GetID()})
	issue := f.create(t, project_model.KindIssue, map[string]any{"subject": "i", "milestone": m2.GetID()})

	res := f.update(t, us, map[string]any{"milestone": m2.GetID()})
	assert.Equal(t, 1, res.CascadeWrites)
	moved, err := agile_model.GetTaskByID(f.ctx, task.GetID())
	require.NoError(t, err)
	assert.Equal(t, m2.GetID(), moved.MilestoneID)
	assert.Equal(t, task.GetVersion()+1, moved.Version)

	// deleting the milestone detaches its items
	_, err = f.apply(&mutation.Request{Op: mutation.OpDelete, Kind: project_model.KindMilestone, ID: m2.GetID()})
	require.NoError(t, err)
	assert.Zero(t, f.story(t, us.GetID()).MilestoneID)
	moved, err = agile_model.GetTaskByID(f.ctx, task.GetID())
	require.NoError(t, err)
	assert.Zero(t, moved.MilestoneID)
	assert.Equal(t, us.GetID(), moved.UserStoryID)
	detached, err := agile_model.GetIssueByID(f.ctx, issue.GetID())
	require.NoError(t, err)
	assert.Zero(t, detached.MilestoneID)
	assert.Equal(t, issue.GetVersion()+1, detached.Version)
	unittest.AssertCountByCond(t, "issue", builder.Eq{"milestone_id": m2.GetID()}, 0)

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestDeleteTaskClosesStory(t *testing.T) {
	f := newFixture(t)
	us := f.create(t, project_model.KindUserStory, map[string]any{
		"subject": "u", "status": f.status(t, project_model.KindUserStory, "Done"),
	})
	f.create(t, project_model.KindTask, map[string]any{
		"subject": "done", "user_story": us.GetID(), "status": f.status(t, project_model.KindTask, "Closed"),
	})
	open := f.create(t, project_model.KindTask, map[string]any{"subject": "open", "user_story": us.GetID()})
	assert.False(t, f.story(t, us.GetID()).IsClosed)

	// deletes are never version checked
	res, err := f.apply(&mutation.Request{Op: mutation.OpDelete, Kind: project_model.KindTask, ID: open.GetID(), ExpectedVersion: 99})
	require.NoError(t, err)
	assert.Equal(t, history_model.EntryTypeDelete, res.HistoryEntry.Type)
	assert.True(t, f.story(t, us.GetID()).IsClosed)

	_, err = agile_model.GetTaskByID(f.ctx, open.GetID())
	assert.True(t, agile_model.IsErrNotExist(err))

	// deleting the story keeps its tasks
	_, err = f.apply(&mutation.Request{Op: mutation.OpDelete, Kind: project_model.KindUserStory, ID: us.GetID()})
	require.NoError(t, err)
	unittest.AssertCountByCond(t, "task", builder.Eq{"project_id": f.project.ID, "user_story_id": 0}, 1)
	unittest.AssertCountByCond(t, "role_points", builder.Eq{"user_story_id": us.GetID()}, 0)

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestIssueFinishedDate(t *testing.T) {
	f := newFixture(t)
	issue := f.create(t, project_model.KindIssue, map[string]any{"subject": "crash", "tags": []any{"Bug", "ui", "bug"}}).(*agile_model.Issue)
	assert.NotZero(t, issue.SeverityID)
	assert.NotZero(t, issue.PriorityID)
	assert.NotZero(t, issue.TypeID)
	assert.Equal(t, []string{"bug", "ui"}, issue.Tags)

	p, err := project_model.GetProjectByID(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.Contains(t, p.TagsColors, "bug")
	assert.Contains(t, p.TagsColors, "ui")

	res := f.update(t, issue, map[string]any{"status": f.status(t, project_model.KindIssue, "Rejected")})
	assert.NotZero(t, res.Entity.(*agile_model.Issue).FinishedDate)
	res = f.update(t, res.Entity, map[string]any{"status": f.status(t, project_model.KindIssue, "New")})
	assert.Zero(t, res.Entity.(*agile_model.Issue).FinishedDate)

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func prepareVersion5(t *testing.T, f *fixture) agile_model.Item {
	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "s"})
	for i := 1; i <= 4; i++ {
		us = f.update(t, us, map[string]any{"backlog_order": i}).Entity
	}
	require.EqualValues(t, 5, us.GetVersion())
	return us
}

func TestOCCDisjointEdit(t *testing.T) {
	f := newFixture(t)
	us := prepareVersion5(t, f)

	resA := f.update(t, us, map[string]any{"subject": "X"})
	assert.EqualValues(t, 6, resA.Entity.GetVersion())
	resB := f.update(t, us, map[string]any{"description": "Y"})
	assert.EqualValues(t, 7, resB.Entity.GetVersion())

	merged := f.story(t, us.GetID())
	assert.Equal(t, "X", merged.Subject)
	assert.Equal(t, "Y", merged.Description)
}

func TestOCCOverlappingEdit(t *testing.T) {
	f := newFixture(t)
	us := prepareVersion5(t, f)

	f.update(t, us, map[string]any{"subject": "X"})
	_, err := f.apply(&mutation.Request{
		Op: mutation.OpUpdate, Kind: project_model.KindUserStory, ID: us.GetID(),
		ExpectedVersion: 5, Patch: map[string]any{"subject": "Z", "description": "Y"},
	})
	require.Error(t, err)
	assert.Equal(t, mutation.KindStaleObject, mutation.KindOf(err))
	var stale agile_model.ErrStaleObject
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, []string{"subject"}, stale.Fields)

	current := f.story(t, us.GetID())
	assert.Equal(t, "X", current.Subject)
	assert.EqualValues(t, 6, current.Version)
}

func TestRefusedPatches(t *testing.T) {
	f := newFixture(t)
	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "s"})

	for _, tc := range []struct {
		patch map[string]any
		kind  mutation.ErrorKind
	}{
		{map[string]any{"is_closed": true}, mutation.KindReadonlyField},
		{map[string]any{"finish_date": nil}, mutation.KindReadonlyField},
		{map[string]any{"ref": 7}, mutation.KindReadonlyField},
		{map[string]any{"status_id": int64(999999)}, mutation.KindValidation},
		{map[string]any{"subject": "  "}, mutation.KindValidation},
		{map[string]any{"color": "#ffffff"}, mutation.KindValidation},
		{map[string]any{"milestone": int64(999999)}, mutation.KindNotFound},
	} {
		_, err := f.apply(&mutation.Request{
			Op: mutation.OpUpdate, Kind: project_model.KindUserStory, ID: us.GetID(),
			ExpectedVersion: us.GetVersion(), Patch: tc.patch,
		})
		assert.Equal(t, tc.kind, mutation.KindOf(err), "patch %v: %v", tc.patch, err)
	}

	_, err := f.apply(&mutation.Request{Op: mutation.OpUpdate, Kind: project_model.KindUserStory, ID: us.GetID(), Patch: map[string]any{"subject": "v"}})
	assert.Equal(t, mutation.KindValidation, mutation.KindOf(err), "the version is required")

	_, err = f.apply(&mutation.Request{Op: mutation.OpUpdate, Kind: project_model.KindUserStory, ID: 424242, ExpectedVersion: 1, Patch: map[string]any{"subject": "v"}})
	assert.Equal(t, mutation.KindNotFound, mutation.KindOf(err))

	// a refused mutation leaves no trace
	assert.EqualValues(t, 1, f.story(t, us.GetID()).Version)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	stranger := &user_model.User{Name: "stranger", Email: "s@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(f.ctx, stranger))
	viewer := &user_model.User{Name: "viewer", Email: "v@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(f.ctx, viewer))

	roles, err := project_model.GetRoles(f.ctx, f.project.ID)
	require.NoError(t, err)
	var stakeholder *project_model.Role
	for _, r := range roles {
		if r.Name == "Stakeholder" {
			stakeholder = r
		}
	}
	require.NotNil(t, stakeholder)
	_, err = project_model.AddMember(f.ctx, f.project.ID, viewer.ID, stakeholder.ID, false)
	require.NoError(t, err)

	for _, actor := range []int64{stranger.ID, viewer.ID} {
		_, err := f.apply(&mutation.Request{Op: mutation.OpCreate, Kind: project_model.KindUserStory, ActorID: actor, Patch: map[string]any{"subject": "s"}})
		assert.Equal(t, mutation.KindPermissionDenied, mutation.KindOf(err))
	}

	// only members can be assigned
	_, err = f.apply(&mutation.Request{Op: mutation.OpCreate, Kind: project_model.KindTask, Patch: map[string]any{"subject": "s", "assigned_to": stranger.ID}})
	assert.Equal(t, mutation.KindValidation, mutation.KindOf(err))
	res, err := f.apply(&mutation.Request{Op: mutation.OpCreate, Kind: project_model.KindTask, Patch: map[string]any{"subject": "s", "assigned_to": viewer.ID}})
	require.NoError(t, err)
	assert.Equal(t, viewer.ID, res.Entity.GetAssignedToID())
}

func TestPointsFollowRoles(t *testing.T) {
	f := newFixture(t)
	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "s"})
	roles, err := project_model.GetComputableRoles(f.ctx, f.project.ID)
	require.NoError(t, err)
	points, err := agile_model.GetRolePoints(f.ctx, us.GetID())
	require.NoError(t, err)
	assert.Len(t, points, len(roles))

	five, err := project_model.GetOrCreatePointsByValue(f.ctx, f.project.ID, 5)
	require.NoError(t, err)
	res := f.update(t, us, map[string]any{"points": map[string]any{strconv.FormatInt(roles[0].ID, 10): five.ID}})
	assert.Contains(t, res.HistoryEntry.Diff, "points")
	total, err := agile_model.TotalPoints(f.ctx, us.GetID())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, total, 0.001)

	// a new computable role is estimated "?" everywhere, a deleted one disappears
	role := &project_model.Role{ProjectID: f.project.ID, Name: "QA", Computable: true}
	require.NoError(t, mutation.AddRole(f.ctx, f.owner.ID, role))
	points, err = agile_model.GetRolePoints(f.ctx, us.GetID())
	require.NoError(t, err)
	assert.Contains(t, points, role.ID)

	entries, err := mutation.GetHistory(f.ctx, project_model.KindUserStory, us.GetID())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Contains(t, entries[2].Diff, "points")
	assert.Equal(t, f.owner.ID, entries[2].UserID)

	require.NoError(t, mutation.DeleteRole(f.ctx, f.owner.ID, f.project.ID, role.ID, 0))
	points, err = agile_model.GetRolePoints(f.ctx, us.GetID())
	require.NoError(t, err)
	assert.NotContains(t, points, role.ID)

	// every estimation rewrite bumps the version and replays from the history
	entries, err = mutation.GetHistory(f.ctx, project_model.KindUserStory, us.GetID())
	require.NoError(t, err)
	require.Len(t, entries, 4)
	last := entries[3]
	current, err := agile_model.GetItem(f.ctx, project_model.KindUserStory, us.GetID())
	require.NoError(t, err)
	assert.Equal(t, last.Version, current.GetVersion())
	assert.Greater(t, current.GetVersion(), res.Entity.GetVersion())
	frozen, err := history_service.Freeze(f.ctx, current)
	require.NoError(t, err)
	state, err := history_service.Reconstruct(f.ctx, project_model.KindUserStory, us.GetID(), last.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen, state)

	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestConcurrentRefs(t *testing.T) {
	f := newFixture(t)

	const n = 100
	refs := make([]int64, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			for {
				res, err := f.apply(&mutation.Request{
					Op: mutation.OpCreate, Kind: project_model.KindUserStory,
					Patch: map[string]any{"subject": "story " + strconv.Itoa(i)},
				})
				if mutation.KindOf(err).Retryable() {
					continue
				} else if err != nil {
					return err
				}
				refs[i] = res.Entity.(*agile_model.UserStory).Ref
				return nil
			}
		})
	}
	require.NoError(t, g.Wait())

	slices.Sort(refs)
	expected := make([]int64, n)
	for i := range expected {
		expected[i] = int64(i + 1)
	}
	assert.Equal(t, expected, refs)

	p, err := project_model.GetProjectByID(f.ctx, f.project.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n, p.LastUSRef)
	unittest.CheckProjectConsistency(t, f.project.ID)
}

func TestDeleteProject(t *testing.T) {
	f := newFixture(t)
	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "s"})
	f.create(t, project_model.KindTask, map[string]any{"subject": "t", "user_story": us.GetID()})
	f.create(t, project_model.KindIssue, map[string]any{"subject": "i"})

	other := &user_model.User{Name: "other", Email: "o@example.com", IsActive: true}
	require.NoError(t, user_model.CreateUser(f.ctx, other))
	err := mutation.DeleteProject(f.ctx, f.project.ID, other.ID)
	assert.Equal(t, mutation.KindPermissionDenied, mutation.KindOf(err))

	require.NoError(t, mutation.DeleteProject(f.ctx, f.project.ID, f.owner.ID))
	cond := builder.Eq{"project_id": f.project.ID}
	for _, table := range []string{"user_story", "task", "issue", "history_entry", "watch", "work_item_status", "role", "membership"} {
		unittest.AssertCountByCond(t, table, cond, 0)
	}
	unittest.AssertCountByCond(t, "role_points", builder.Eq{"user_story_id": us.GetID()}, 0)
	_, err = project_model.GetProjectByID(f.ctx, f.project.ID)
	assert.True(t, project_model.IsErrProjectNotExist(err))
}

func TestWatchers(t *testing.T) {
	f := newFixture(t)
	member := &user_model.User{Name: "dev", Email: "dev@example.com", IsActive: true, NotifyLevel: user_model.NotifyAllOwnedProjects}
	require.NoError(t, user_model.CreateUser(f.ctx, member))
	roles, err := project_model.GetRoles(f.ctx, f.project.ID)
	require.NoError(t, err)
	_, err = project_model.AddMember(f.ctx, f.project.ID, member.ID, roles[0].ID, false)
	require.NoError(t, err)

	us := f.create(t, project_model.KindUserStory, map[string]any{"subject": "s"})
	require.NoError(t, mutation.SetWatching(f.ctx, member.ID, project_model.KindUserStory, us.GetID(), true))

	res := f.update(t, us, map[string]any{"subject": "renamed"})
	require.Len(t, res.NotifySet, 1, "the actor is not told about their own change")
	assert.Equal(t, member.ID, res.NotifySet[0].ID)

	require.NoError(t, mutation.SetWatching(f.ctx, member.ID, project_model.KindUserStory, us.GetID(), false))
	res = f.update(t, res.Entity, map[string]any{"subject": "again"})
	assert.Empty(t, res.NotifySet)
}
