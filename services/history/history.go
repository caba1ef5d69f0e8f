// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"fmt"
	"maps"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Actor is the author of an entry, an actor without local account has ID 0 and keeps its name
type Actor struct {
	ID   int64
	Name string
}

// ActorOf returns the actor for a user, ghosts keep their name only
func ActorOf(u *user_model.User) Actor {
	if u == nil {
		return Actor{Name: user_model.GhostUserName}
	}
	if u.IsGhost() {
		return Actor{Name: u.Name}
	}
	return Actor{ID: u.ID, Name: u.Name}
}

// RecordOptions describes the entry to append
type RecordOptions struct {
	Actor   Actor
	Comment string
	// Created keeps a source timestamp, zero means now
	Created timeutil.TimeStamp
	// PreState is the frozen pre-image taken before related rows were rewritten, nil freezes pre
	PreState history_model.Snapshot
}

// Record appends the entry of a mutation of an item. A nil pre records a creation and a nil post a deletion.
// Creations, deletions and every SnapshotInterval-th entry also store the full state.
func Record(ctx context.Context, pre, post agile_model.Item, opts RecordOptions) (*history_model.Entry, error) {
	subject := post
	typ := history_model.EntryTypeChange
	switch {
	case pre == nil && post == nil:
		return nil, fmt.Errorf("nothing to record")
	case pre == nil:
		typ = history_model.EntryTypeCreate
	case post == nil:
		typ = history_model.EntryTypeDelete
		subject = pre
	}

	preState := opts.PreState
	if preState == nil {
		var err error
		if preState, err = Freeze(ctx, pre); err != nil {
			return nil, err
		}
	}
	postState, err := Freeze(ctx, post)
	if err != nil {
		return nil, err
	}
	diff := Diff(preState, postState)

	e := &history_model.Entry{
		Key:         history_model.Key(subject.ItemKind(), subject.GetID()),
		ProjectID:   subject.GetProjectID(),
		Kind:        subject.ItemKind(),
		ObjectID:    subject.GetID(),
		Type:        typ,
		UserID:      opts.Actor.ID,
		UserName:    opts.Actor.Name,
		Diff:        diff,
		Comment:     opts.Comment,
		Version:     subject.GetVersion(),
		CreatedUnix: opts.Created,
	}
	if e.Values, err = renderValues(ctx, diff); err != nil {
		return nil, err
	}
	if typ == history_model.EntryTypeChange {
		if change, ok := diff["description"]; ok && setting.History.DescriptionDiff {
			e.DescriptionDiff = DescriptionDiff(fmt.Sprint(change[0]), fmt.Sprint(change[1]))
		}
	}

	switch typ {
	case history_model.EntryTypeCreate:
		e.IsSnapshot, e.Snapshot = true, postState
	case history_model.EntryTypeDelete:
		e.IsSnapshot, e.Snapshot = true, preState
	default:
		since, err := history_model.CountEntriesSinceSnapshot(ctx, e.Key)
		if err != nil {
			return nil, err
		}
		if since+1 >= int64(setting.History.SnapshotInterval) {
			e.IsSnapshot, e.Snapshot = true, postState
		}
	}
	if err := history_model.InsertEntry(ctx, e, opts.Created != 0); err != nil {
		return nil, err
	}
	return e, nil
}

// DescriptionDiff renders the change of a description as html
func DescriptionDiff(oldText, newText string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, true)
	diffs = dmp.DiffCleanupSemantic(diffs)
	return dmp.DiffPrettyHtml(diffs)
}

// GetHistory returns the entries of an item in order
func GetHistory(ctx context.Context, kind project_model.ItemKind, id int64) ([]*history_model.Entry, error) {
	if !kind.IsValid() {
		return nil, agile_model.NewErrValidation("kind", "unknown kind %q", kind)
	}
	return history_model.GetEntries(ctx, history_model.Key(kind, id))
}

// Reconstruct returns the state of an item right after the given entry,
// replaying the diffs that follow the last snapshot stored before it
func Reconstruct(ctx context.Context, kind project_model.ItemKind, id, entryID int64) (history_model.Snapshot, error) {
	entries, err := GetHistory(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	target := -1
	for i, e := range entries {
		if e.ID == entryID {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, agile_model.ErrNotExist{Kind: kind, ID: id}
	}
	start := -1
	for i := target; i >= 0; i-- {
		if entries[i].IsSnapshot {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("no snapshot of %s before entry %d", history_model.Key(kind, id), entryID)
	}
	state := maps.Clone(entries[start].Snapshot)
	for _, e := range entries[start+1 : target+1] {
		state = Apply(state, e.Diff)
	}
	return state, nil
}
