// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation

import (
	"context"
	"fmt"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	attachment_model "github.com/taigaio/taiga-back-sub001/models/attachment"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	watch_model "github.com/taigaio/taiga-back-sub001/models/watch"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	"github.com/taigaio/taiga-back-sub001/services/cascade"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
	"github.com/taigaio/taiga-back-sub001/services/mailer"
	"github.com/taigaio/taiga-back-sub001/services/notify"
	"github.com/taigaio/taiga-back-sub001/services/occ"
)

// Op is the operation of a mutation request
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

func (op Op) action() string {
	switch op {
	case OpCreate:
		return project_model.ActionAdd
	case OpDelete:
		return project_model.ActionDelete
	}
	return project_model.ActionModify
}

// Request is one mutation of an agile item.
// ID is unset on creation, Patch is unset on deletion.
type Request struct {
	Op              Op
	Kind            project_model.ItemKind
	ID              int64
	ActorID         int64
	ProjectID       int64
	ExpectedVersion int64
	Patch           map[string]any
	Comment         string
}

// Result is what a committed mutation produced
type Result struct {
	Project *project_model.Project
	// Entity is the item after the mutation, the deleted row on deletion
	Entity       agile_model.Item
	HistoryEntry *history_model.Entry
	NotifySet    []*user_model.User
	// CascadeWrites counts the derived rows written
	CascadeWrites int
}

// ApplyMutation validates and applies a mutation with its cascades in one transaction,
// records its history and hands the notifications to the mailer once committed.
func ApplyMutation(ctx context.Context, req *Request) (*Result, error) {
	res, err := db.WithTx2(ctx, func(ctx context.Context) (*Result, error) {
		return applyMutation(ctx, req)
	})
	if err != nil && db.IsErrLockTimeout(err) && !agile_model.IsErrTransientConflict(err) {
		err = agile_model.ErrTransientConflict{Err: err}
	}
	metrics.Mutations.WithLabelValues(string(req.Kind), string(req.Op), resultLabel(err)).Inc()
	if err != nil {
		if KindOf(err) == KindInternal {
			log.Error("ApplyMutation %s %s %d in project %d by user %d: %v", req.Op, req.Kind, req.ID, req.ProjectID, req.ActorID, err)
		} else {
			log.Debug("ApplyMutation %s %s %d refused: %v", req.Op, req.Kind, req.ID, err)
		}
		return nil, err
	}

	mailer.MailItemEntry(res.Project, res.Entity, res.HistoryEntry, res.NotifySet)
	return res, nil
}

func applyMutation(ctx context.Context, req *Request) (*Result, error) {
	if !req.Kind.IsValid() {
		return nil, agile_model.NewErrValidation("kind", "unknown kind %q", req.Kind)
	}
	p, err := project_model.GetProjectByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := project_model.LockProject(ctx, p.ID); err != nil {
		return nil, err
	}
	actor, err := checkPermission(ctx, p, req)
	if err != nil {
		return nil, err
	}

	m := &mutator{project: p, actor: actor, req: req}
	switch req.Op {
	case OpCreate:
		err = m.create(ctx)
	case OpUpdate:
		err = m.update(ctx)
	case OpDelete:
		err = m.delete(ctx)
	default:
		err = agile_model.NewErrValidation("op", "unknown operation %q", req.Op)
	}
	if err != nil {
		return nil, err
	}
	return m.result, nil
}

func checkPermission(ctx context.Context, p *project_model.Project, req *Request) (*user_model.User, error) {
	perm := project_model.PermissionName(req.Op.action(), req.Kind)
	if req.ActorID <= 0 {
		return nil, agile_model.ErrPermissionDenied{Action: perm}
	}
	actor, err := user_model.GetUserByID(ctx, req.ActorID)
	if user_model.IsErrUserNotExist(err) {
		return nil, agile_model.ErrPermissionDenied{Action: perm}
	} else if err != nil {
		return nil, err
	}
	ok, err := project_model.HasPermission(ctx, p, actor.ID, perm)
	if err != nil {
		return nil, err
	}
	if !ok || !actor.IsActive {
		return nil, agile_model.ErrPermissionDenied{Action: perm}
	}
	return actor, nil
}

// mutator runs one request inside its transaction
type mutator struct {
	project *project_model.Project
	actor   *user_model.User
	req     *Request
	result  *Result
}

func (m *mutator) newBatch(origin agile_model.Item) *cascade.Batch {
	batch := cascade.NewBatch(m.project.ID, origin)
	actor := history_service.ActorOf(m.actor)
	batch.Recorder = func(ctx context.Context, pre, post agile_model.Item) error {
		_, err := history_service.Record(ctx, pre, post, history_service.RecordOptions{Actor: actor})
		return err
	}
	return batch
}

func (m *mutator) create(ctx context.Context) error {
	if m.req.ID != 0 {
		return agile_model.NewErrValidation("id", "a new item has no id")
	}
	patch, err := occ.NormalizePatch(m.req.Patch)
	if err != nil {
		return err
	}
	item, err := agile_model.NewItem(m.req.Kind)
	if err != nil {
		return err
	}
	setOwnership(item, m.project.ID, m.actor.ID)

	batch := m.newBatch(nil)
	a := &applier{project: m.project, batch: batch, patch: patch, creating: true}
	if err := a.apply(ctx, nil, item); err != nil {
		return err
	}
	if m.req.Kind.HasRef() {
		ref, err := agile_model.AllocateRef(ctx, m.project.ID, m.req.Kind)
		if err != nil {
			return err
		}
		setRef(item, ref)
	}
	if err := agile_model.InsertItem(ctx, item, false); err != nil {
		return fmt.Errorf("InsertItem: %w", err)
	}
	batch.Exclude(item)

	if us, ok := item.(*agile_model.UserStory); ok {
		if err := agile_model.SyncRolePoints(ctx, us); err != nil {
			return fmt.Errorf("SyncRolePoints: %w", err)
		}
		if err := writePoints(ctx, us, a.points); err != nil {
			return err
		}
	}

	entry, err := history_service.Record(ctx, nil, item, history_service.RecordOptions{
		Actor:   history_service.ActorOf(m.actor),
		Comment: m.req.Comment,
	})
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return m.finish(ctx, batch, a, item, entry)
}

func (m *mutator) update(ctx context.Context) error {
	patch, err := occ.NormalizePatch(m.req.Patch)
	if err != nil {
		return err
	}
	if len(patch) == 0 && m.req.Comment == "" {
		return agile_model.NewErrValidation("patch", "nothing to change")
	}
	if m.req.ExpectedVersion <= 0 {
		return agile_model.NewErrValidation("version", "this field is required")
	}
	item, err := m.lockedItem(ctx)
	if err != nil {
		return err
	}
	if err := occ.Check(ctx, item, m.req.ExpectedVersion, patch); err != nil {
		return err
	}

	pre := cloneItem(item)
	preState, err := history_service.Freeze(ctx, pre)
	if err != nil {
		return err
	}
	batch := m.newBatch(item)
	a := &applier{project: m.project, batch: batch, patch: patch}
	if err := a.apply(ctx, pre, item); err != nil {
		return err
	}
	a.set("updated_unix")
	if err := agile_model.UpdateItemCols(ctx, item, a.cols...); err != nil {
		return err
	}
	if us, ok := item.(*agile_model.UserStory); ok {
		if err := writePoints(ctx, us, a.points); err != nil {
			return err
		}
	}

	entry, err := history_service.Record(ctx, pre, item, history_service.RecordOptions{
		Actor:    history_service.ActorOf(m.actor),
		Comment:  m.req.Comment,
		PreState: preState,
	})
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return m.finish(ctx, batch, a, item, entry)
}

// finish runs the cascades and derives the watchers of a created or updated item
func (m *mutator) finish(ctx context.Context, batch *cascade.Batch, a *applier, item agile_model.Item, entry *history_model.Entry) error {
	if err := batch.Run(ctx); err != nil {
		return err
	}
	if len(a.tags) > 0 {
		if _, err := project_model.AssignTagColors(ctx, m.project, a.tags); err != nil {
			return fmt.Errorf("AssignTagColors: %w", err)
		}
	}
	if err := notify.AutoWatch(ctx, item); err != nil {
		return fmt.Errorf("AutoWatch: %w", err)
	}
	recipients, err := notify.Recipients(ctx, m.project, item, m.actor.ID)
	if err != nil {
		return err
	}
	m.result = &Result{
		Project:       m.project,
		Entity:        item,
		HistoryEntry:  entry,
		NotifySet:     recipients,
		CascadeWrites: batch.Writes(),
	}
	return nil
}

// delete removes the item physically, the version is not checked
func (m *mutator) delete(ctx context.Context) error {
	item, err := m.lockedItem(ctx)
	if err != nil {
		return err
	}
	kind, id := item.ItemKind(), item.GetID()

	recipients, err := notify.Recipients(ctx, m.project, item, m.actor.ID)
	if err != nil {
		return err
	}
	entry, err := history_service.Record(ctx, item, nil, history_service.RecordOptions{
		Actor:   history_service.ActorOf(m.actor),
		Comment: m.req.Comment,
	})
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}

	batch := m.newBatch(item)
	switch it := item.(type) {
	case *agile_model.UserStory:
		if err := batch.DetachStory(ctx, id); err != nil {
			return err
		}
		if err := agile_model.DeleteRolePointsOfUserStory(ctx, id); err != nil {
			return err
		}
		if err := agile_model.DeleteRelatedOfUserStory(ctx, id); err != nil {
			return err
		}
		batch.MarkMilestone(it.MilestoneID)
	case *agile_model.Task:
		batch.MarkStory(it.UserStoryID)
		batch.MarkMilestone(it.MilestoneID)
	case *agile_model.Epic:
		if err := agile_model.DeleteRelatedOfEpic(ctx, id); err != nil {
			return err
		}
	case *agile_model.Milestone:
		if err := batch.DetachMilestone(ctx, id); err != nil {
			return err
		}
	}
	if err := watch_model.DeleteItemWatches(ctx, kind, id); err != nil {
		return err
	}
	if err := attachment_model.DeleteItemAttachments(ctx, kind, id); err != nil {
		return err
	}
	if err := agile_model.DeleteItem(ctx, item); err != nil {
		return err
	}
	if err := batch.Run(ctx); err != nil {
		return err
	}

	m.result = &Result{
		Project:       m.project,
		Entity:        item,
		HistoryEntry:  entry,
		NotifySet:     recipients,
		CascadeWrites: batch.Writes(),
	}
	return nil
}

// lockedItem loads the requested item under its row lock, a task locks its user story first
func (m *mutator) lockedItem(ctx context.Context) (agile_model.Item, error) {
	item, err := agile_model.GetItem(ctx, m.req.Kind, m.req.ID)
	if err != nil {
		return nil, err
	}
	if item.GetProjectID() != m.project.ID {
		return nil, agile_model.ErrNotExist{Kind: m.req.Kind, ID: m.req.ID}
	}
	if t, ok := item.(*agile_model.Task); ok && t.UserStoryID > 0 {
		if err := agile_model.LockItem(ctx, project_model.KindUserStory, t.UserStoryID); err != nil {
			return nil, err
		}
	}
	if err := agile_model.LockItem(ctx, m.req.Kind, m.req.ID); err != nil {
		return nil, err
	}
	// reload, the row may have changed while we waited
	return agile_model.GetItem(ctx, m.req.Kind, m.req.ID)
}

func writePoints(ctx context.Context, us *agile_model.UserStory, points map[int64]int64) error {
	for roleID, pointsID := range points {
		if err := agile_model.SetRolePoints(ctx, us.ID, roleID, pointsID); err != nil {
			return fmt.Errorf("SetRolePoints: %w", err)
		}
	}
	return nil
}

func setOwnership(item agile_model.Item, projectID, ownerID int64) {
	switch it := item.(type) {
	case *agile_model.UserStory:
		it.ProjectID, it.OwnerID = projectID, ownerID
	case *agile_model.Task:
		it.ProjectID, it.OwnerID = projectID, ownerID
	case *agile_model.Issue:
		it.ProjectID, it.OwnerID = projectID, ownerID
	case *agile_model.Epic:
		it.ProjectID, it.OwnerID = projectID, ownerID
	case *agile_model.Milestone:
		it.ProjectID, it.OwnerID = projectID, ownerID
	}
}

func setRef(item agile_model.Item, ref int64) {
	switch it := item.(type) {
	case *agile_model.UserStory:
		it.Ref = ref
	case *agile_model.Task:
		it.Ref = ref
	case *agile_model.Issue:
		it.Ref = ref
	case *agile_model.Epic:
		it.Ref = ref
	}
}

func cloneItem(item agile_model.Item) agile_model.Item {
	switch it := item.(type) {
	case *agile_model.UserStory:
		c := *it
		return &c
	case *agile_model.Task:
		c := *it
		return &c
	case *agile_model.Issue:
		c := *it
		return &c
	case *agile_model.Epic:
		c := *it
		return &c
	case *agile_model.Milestone:
		c := *it
		return &c
	}
	return item
}
