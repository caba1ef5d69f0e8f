// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"
	"fmt"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
)

// IsRefTaken reports whether an item of kind already holds ref in the project
func IsRefTaken(ctx context.Context, projectID int64, kind project_model.ItemKind, ref int64) (bool, error) {
	if !kind.HasRef() {
		return false, NewErrValidation("kind", "%s has no ref", kind)
	}
	return db.GetEngine(ctx).Table(tableNameOf(kind)).Where("project_id=? AND ref=?", projectID, ref).Exist()
}

// GetMaxRef returns the highest ref held by an item of kind in the project
func GetMaxRef(ctx context.Context, projectID int64, kind project_model.ItemKind) (int64, error) {
	if !kind.HasRef() {
		return 0, NewErrValidation("kind", "%s has no ref", kind)
	}
	var maxRef int64
	_, err := db.GetEngine(ctx).SQL(fmt.Sprintf("SELECT COALESCE(MAX(ref), 0) FROM `%s` WHERE project_id = ?", tableNameOf(kind)), projectID).Get(&maxRef)
	return maxRef, err
}

// AllocateRef hands out the next free ref of kind in the project.
// The project row is locked first and the counter row stays locked until the transaction ends,
// refs held by existing items are skipped. Deleting an item never gives its ref back.
func AllocateRef(ctx context.Context, projectID int64, kind project_model.ItemKind) (int64, error) {
	if !kind.HasRef() {
		return 0, NewErrValidation("kind", "%s has no ref", kind)
	}
	ref, err := db.WithTx2(ctx, func(ctx context.Context) (int64, error) {
		if err := project_model.LockProject(ctx, projectID); err != nil {
			return 0, err
		}
		ref, err := db.GetNextResourceIndex(ctx, projectID, string(kind), func(ctx context.Context, idx int64) (bool, error) {
			return IsRefTaken(ctx, projectID, kind, idx)
		})
		if err != nil {
			return 0, err
		}
		return ref, project_model.SetLastRef(ctx, projectID, kind, ref)
	})
	if err != nil && db.IsErrLockTimeout(err) {
		return 0, ErrTransientConflict{Err: err}
	}
	return ref, err
}

// RebuildRefCounters moves every counter of the project up to the highest ref in use and mirrors it on the project row
func RebuildRefCounters(ctx context.Context, projectID int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		for _, kind := range project_model.RefKinds {
			maxRef, err := GetMaxRef(ctx, projectID, kind)
			if err != nil {
				return err
			}
			if err := db.SyncMaxResourceIndex(ctx, projectID, string(kind), maxRef); err != nil {
				return err
			}
			counter, err := db.GetMaxResourceIndex(ctx, projectID, string(kind))
			if err != nil {
				return err
			}
			if err := project_model.ResetLastRef(ctx, projectID, kind, counter); err != nil {
				return err
			}
		}
		return nil
	})
}
