// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Item is a versioned row of the agile tables
type Item interface {
	ItemKind() project_model.ItemKind
	GetID() int64
	GetProjectID() int64
	GetVersion() int64
	GetOwnerID() int64
	GetAssignedToID() int64
	GetCreatedUnix() timeutil.TimeStamp
}

// WorkItem is an Item carrying a ref and a status: epics, user stories, tasks and issues
type WorkItem interface {
	Item
	GetRef() int64
	GetStatusID() int64
	GetTags() []string
}

var (
	_ WorkItem = &UserStory{}
	_ WorkItem = &Task{}
	_ WorkItem = &Issue{}
	_ WorkItem = &Epic{}
	_ Item     = &Milestone{}
)

// NewItem returns an empty row of the table of kind
func NewItem(kind project_model.ItemKind) (Item, error) {
	switch kind {
	case project_model.KindUserStory:
		return new(UserStory), nil
	case project_model.KindTask:
		return new(Task), nil
	case project_model.KindIssue:
		return new(Issue), nil
	case project_model.KindEpic:
		return new(Epic), nil
	case project_model.KindMilestone:
		return new(Milestone), nil
	}
	return nil, NewErrValidation("kind", "unknown kind %q", kind)
}

// GetItem loads the item of kind by id
func GetItem(ctx context.Context, kind project_model.ItemKind, id int64) (Item, error) {
	item, err := NewItem(kind)
	if err != nil {
		return nil, err
	}
	has, err := db.GetEngine(ctx).ID(id).NoAutoCondition().Get(item)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: kind, ID: id}
	}
	return item, nil
}

// LockItem takes the row lock of the item, see db.LockRowsForUpdate for the lock order
func LockItem(ctx context.Context, kind project_model.ItemKind, id int64) error {
	return db.LockRowsForUpdate(ctx, tableNameOf(kind), id)
}

func tableNameOf(kind project_model.ItemKind) string {
	switch kind {
	case project_model.KindUserStory:
		return "user_story"
	case project_model.KindMilestone:
		return "milestone"
	}
	return string(kind)
}

// InsertItem inserts a new row, the version starts at 1.
// keepTimestamps preserves the created and updated stamps set by the caller.
func InsertItem(ctx context.Context, item Item, keepTimestamps bool) error {
	sess := db.GetEngine(ctx)
	if keepTimestamps {
		sess = sess.NoAutoTime()
	}
	_, err := sess.Insert(item)
	return err
}

// UpdateItemCols writes the given columns of the item guarded by its version.
// The version is bumped by one, an outdated version fails with ErrStaleObject.
func UpdateItemCols(ctx context.Context, item Item, cols ...string) error {
	return updateItemCols(ctx, item, false, cols)
}

// UpdateItemColsNoAutoTime is UpdateItemCols keeping the modified stamp, used when replaying imports
func UpdateItemColsNoAutoTime(ctx context.Context, item Item, cols ...string) error {
	return updateItemCols(ctx, item, true, cols)
}

func updateItemCols(ctx context.Context, item Item, noAutoTime bool, cols []string) error {
	prev := item.GetVersion()
	sess := db.GetEngine(ctx).ID(item.GetID()).Cols(cols...).NoAutoCondition()
	if noAutoTime {
		sess = sess.NoAutoTime()
	}
	affected, err := sess.Update(item)
	if err != nil {
		return err
	}
	if affected == 0 {
		setVersion(item, prev)
		return ErrStaleObject{Kind: item.ItemKind(), ID: item.GetID(), Fields: cols}
	}
	return nil
}

// DeleteItem physically deletes the row, the version is not checked
func DeleteItem(ctx context.Context, item Item) error {
	_, err := db.GetEngine(ctx).ID(item.GetID()).NoAutoCondition().Delete(item)
	return err
}

// setVersion restores the in-memory version after a refused update
func setVersion(item Item, version int64) {
	switch it := item.(type) {
	case *UserStory:
		it.Version = version
	case *Task:
		it.Version = version
	case *Issue:
		it.Version = version
	case *Epic:
		it.Version = version
	case *Milestone:
		it.Version = version
	}
}
