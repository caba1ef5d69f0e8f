// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/setting"
)

// ReferenceCounter is the per project and kind counter handing out work-item refs
type ReferenceCounter struct {
	ProjectID int64  `xorm:"pk"`
	Kind      string `xorm:"pk VARCHAR(16)"`
	MaxIndex  int64  `xorm:"index"`
}

func init() {
	RegisterModel(new(ReferenceCounter))
}

var (
	// ErrResouceOutdated represents an error when request resource outdated
	ErrResouceOutdated = errors.New("resource outdated")
	// ErrGetResourceIndexFailed represents an error when resource index retries too many times
	ErrGetResourceIndexFailed = errors.New("get resource index failed")
)

const (
	maxDupIndexAttempts = 8
	dupIndexBackoff     = 200 * time.Microsecond
)

// SyncMaxResourceIndex sync the max index with the resource, it never moves the counter backwards
func SyncMaxResourceIndex(ctx context.Context, projectID int64, kind string, maxIndex int64) (err error) {
	return WithTx(ctx, func(ctx context.Context) error {
		e := GetEngine(ctx)

		// try to update the max_index to bigger value
		res, err := e.Exec("UPDATE reference_counter SET max_index=? WHERE project_id=? AND kind=? AND max_index<?", maxIndex, projectID, kind, maxIndex)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}

		// if nothing is updated, the record might not exist or might be larger, it's safe to try to insert it again and then check whether the record exists
		has, err := e.Exist(&ReferenceCounter{ProjectID: projectID, Kind: kind})
		if err != nil {
			return err
		}
		if has {
			return nil
		}
		_, err = e.Insert(&ReferenceCounter{ProjectID: projectID, Kind: kind, MaxIndex: maxIndex})
		return err
	})
}

// GetMaxResourceIndex returns the last ref handed out for the project and kind
func GetMaxResourceIndex(ctx context.Context, projectID int64, kind string) (int64, error) {
	var idx int64
	_, err := GetEngine(ctx).SQL("SELECT max_index FROM reference_counter WHERE project_id=? AND kind=?", projectID, kind).Get(&idx)
	return idx, err
}

// upsertResourceIndex the function will not return until it acquires the lock or receives an error.
func upsertResourceIndex(ctx context.Context, projectID int64, kind string) (err error) {
	// An atomic UPSERT operation (INSERT/UPDATE) is the only operation
	// that ensures that the key is actually locked.
	switch {
	case setting.Database.Type.IsSQLite3() || setting.Database.Type.IsPostgreSQL():
		_, err = Exec(ctx, "INSERT INTO reference_counter (project_id, kind, max_index) "+
			"VALUES (?,?,1) ON CONFLICT (project_id, kind) DO UPDATE SET max_index = reference_counter.max_index+1",
			projectID, kind)
	case setting.Database.Type.IsMySQL():
		_, err = Exec(ctx, "INSERT INTO reference_counter (project_id, kind, max_index) "+
			"VALUES (?,?,1) ON DUPLICATE KEY UPDATE max_index = max_index+1",
			projectID, kind)
	default:
		return fmt.Errorf("database type not supported")
	}
	return err
}

// GetNextResourceIndex generates a resource index, it must run in a transaction
// and the counter row stays locked until that transaction ends.
// isTaken reports refs already held by existing rows (historical data or imports),
// such refs are skipped and the counter advanced past them.
func GetNextResourceIndex(ctx context.Context, projectID int64, kind string, isTaken func(ctx context.Context, idx int64) (bool, error)) (int64, error) {
	if !InTransaction(ctx) {
		return 0, fmt.Errorf("GetNextResourceIndex(%d, %s) must be called in a transaction", projectID, kind)
	}
	for i := 0; i < maxDupIndexAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(dupIndexBackoff):
			}
		}
		if err := upsertResourceIndex(ctx, projectID, kind); err != nil {
			return 0, err
		}
		idx, err := GetMaxResourceIndex(ctx, projectID, kind)
		if err != nil {
			return 0, err
		}
		if idx == 0 {
			return 0, ErrResouceOutdated
		}
		if isTaken == nil {
			return idx, nil
		}
		taken, err := isTaken(ctx, idx)
		if err != nil {
			return 0, err
		}
		if !taken {
			return idx, nil
		}
	}
	return 0, ErrGetResourceIndexFailed
}

// DeleteResourceIndex delete resource index
func DeleteResourceIndex(ctx context.Context, projectID int64) error {
	_, err := Exec(ctx, "DELETE FROM reference_counter WHERE project_id=?", projectID)
	return err
}
