// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"fmt"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// EntryType is the kind of mutation an entry records
type EntryType int

const (
	EntryTypeChange EntryType = iota + 1
	EntryTypeCreate
	EntryTypeDelete
)

func (t EntryType) String() string {
	switch t {
	case EntryTypeChange:
		return "change"
	case EntryTypeCreate:
		return "create"
	case EntryTypeDelete:
		return "delete"
	}
	return fmt.Sprintf("EntryType(%d)", int(t))
}

// Change is the [old, new] pair of a field.
// Tags hold [removed, added], points hold the changed roles only: [{role: old}, {role: new}].
type Change [2]any

// Diff maps the changed fields to their change
type Diff map[string]Change

// Values maps a foreign key field to the display names of the ids named in its change
type Values map[string]map[string]string

// Snapshot is the frozen state of an entity
type Snapshot map[string]any

// Entry is an immutable audit record of one mutation of an entity.
// Entries of an entity are ordered by creation time then id.
type Entry struct {
	ID        int64                  `xorm:"pk autoincr"`
	Key       string                 `xorm:"VARCHAR(64) INDEX NOT NULL"`
	ProjectID int64                  `xorm:"INDEX NOT NULL"`
	Kind      project_model.ItemKind `xorm:"VARCHAR(16) NOT NULL"`
	ObjectID  int64                  `xorm:"NOT NULL"`
	Type      EntryType              `xorm:"NOT NULL"`
	// UserID is 0 for authors without a local account, UserName keeps their name
	UserID          int64  `xorm:"INDEX"`
	UserName        string `xorm:"NOT NULL DEFAULT ''"`
	Diff            Diff     `xorm:"JSON TEXT"`
	Values          Values   `xorm:"JSON TEXT"`
	// ImportedDiff keeps the changes replayed from an import source as the source displayed them,
	// they are never applied when a state is reconstructed
	ImportedDiff    Diff     `xorm:"JSON TEXT"`
	Comment         string   `xorm:"TEXT"`
	DescriptionDiff string   `xorm:"TEXT"`
	Snapshot        Snapshot `xorm:"JSON TEXT"`
	IsSnapshot      bool     `xorm:"NOT NULL DEFAULT false"`
	// Version is the entity version after the mutation, 0 for replayed imports
	Version     int64              `xorm:"INDEX NOT NULL DEFAULT 0"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
}

// TableName keeps the audit table name stable
func (*Entry) TableName() string {
	return "history_entry"
}

func init() {
	db.RegisterModel(new(Entry))
}

// Key returns the history key of an entity
func Key(kind project_model.ItemKind, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

// ChangedFields returns the fields named in the diff
func (e *Entry) ChangedFields() []string {
	fields := make([]string, 0, len(e.Diff))
	for f := range e.Diff {
		fields = append(fields, f)
	}
	return fields
}

// InsertEntry appends an entry, keepTimestamp keeps a preset creation time
func InsertEntry(ctx context.Context, e *Entry, keepTimestamp bool) error {
	if keepTimestamp && e.CreatedUnix != 0 {
		_, err := db.GetEngine(ctx).NoAutoTime().Insert(e)
		return err
	}
	return db.Insert(ctx, e)
}

// GetEntries returns the entries of an entity in order
func GetEntries(ctx context.Context, key string) ([]*Entry, error) {
	entries := make([]*Entry, 0, 10)
	return entries, db.GetEngine(ctx).Where("`key`=?", key).OrderBy("created_unix, id").Find(&entries)
}

// GetEntryByID returns one entry
func GetEntryByID(ctx context.Context, id int64) (*Entry, error) {
	e, has, err := db.GetByID[Entry](ctx, id)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, db.ErrNotExist{Resource: "history_entry", ID: id}
	}
	return e, nil
}

// GetEntriesInVersionRange returns the entries of an entity whose version is in (after, upto]
func GetEntriesInVersionRange(ctx context.Context, key string, after, upto int64) ([]*Entry, error) {
	entries := make([]*Entry, 0, upto-after)
	return entries, db.GetEngine(ctx).
		Where("`key`=? AND version>? AND version<=?", key, after, upto).
		OrderBy("version, id").
		Find(&entries)
}

// CountEntriesSinceSnapshot returns how many entries of the entity follow its last snapshot
func CountEntriesSinceSnapshot(ctx context.Context, key string) (int64, error) {
	var lastSnapshotID int64
	if _, err := db.GetEngine(ctx).SQL("SELECT COALESCE(MAX(id), 0) FROM history_entry WHERE `key` = ? AND is_snapshot = ?", key, true).Get(&lastSnapshotID); err != nil {
		return 0, err
	}
	return db.GetEngine(ctx).Where("`key`=? AND id>?", key, lastSnapshotID).Count(new(Entry))
}

// DeleteProjectEntries deletes the audit trail of every entity of the project
func DeleteProjectEntries(ctx context.Context, projectID int64) error {
	_, err := db.GetEngine(ctx).Where("project_id=?", projectID).Delete(new(Entry))
	return err
}
