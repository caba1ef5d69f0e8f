// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package watch

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Mode specifies what kind of watch the user has on an item
type Mode int8

const (
	// ModeNone don't watch
	ModeNone Mode = iota // 0
	// ModeNormal explicit watch
	ModeNormal // 1
	// ModeDont explicit don't auto-watch
	ModeDont // 2
	// ModeAuto watch added for the owner and the assignee
	ModeAuto // 3
)

// Watch is the subscription of a user to the notifications of an item
type Watch struct {
	ID          int64                  `xorm:"pk autoincr"`
	UserID      int64                  `xorm:"UNIQUE(watch) NOT NULL"`
	ProjectID   int64                  `xorm:"INDEX NOT NULL"`
	Kind        project_model.ItemKind `xorm:"VARCHAR(16) UNIQUE(watch) NOT NULL"`
	ObjectID    int64                  `xorm:"UNIQUE(watch) NOT NULL"`
	Mode        Mode                   `xorm:"NOT NULL DEFAULT 1"`
	CreatedUnix timeutil.TimeStamp     `xorm:"created NOT NULL"`
	UpdatedUnix timeutil.TimeStamp     `xorm:"updated NOT NULL"`
}

func init() {
	db.RegisterModel(new(Watch))
}

// IsWatching reports whether the watch subscribes the user
func (w *Watch) IsWatching() bool {
	return w.Mode == ModeNormal || w.Mode == ModeAuto
}

func getWatch(ctx context.Context, userID int64, kind project_model.ItemKind, objectID int64) (*Watch, bool, error) {
	w := new(Watch)
	has, err := db.GetEngine(ctx).Where("user_id=? AND kind=? AND object_id=?", userID, string(kind), objectID).Get(w)
	return w, has, err
}

// CreateOrUpdateWatchMode sets the watch mode of a user on an item, ModeNone removes the watch.
// An automatic watch never overrides an explicit choice of the user.
func CreateOrUpdateWatchMode(ctx context.Context, userID, projectID int64, kind project_model.ItemKind, objectID int64, mode Mode) error {
	if userID <= 0 {
		return nil
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		w, exists, err := getWatch(ctx, userID, kind, objectID)
		if err != nil {
			return err
		}
		switch {
		case !exists && mode == ModeNone:
			return nil
		case !exists:
			return db.Insert(ctx, &Watch{UserID: userID, ProjectID: projectID, Kind: kind, ObjectID: objectID, Mode: mode})
		case mode == ModeNone:
			_, err = db.GetEngine(ctx).ID(w.ID).Delete(w)
			return err
		case mode == ModeAuto && (w.Mode == ModeNormal || w.Mode == ModeDont):
			return nil
		default:
			w.Mode = mode
			_, err = db.GetEngine(ctx).ID(w.ID).Cols("updated_unix", "mode").Update(w)
			return err
		}
	})
}

// GetWatchers returns the ids of the users watching an item
func GetWatchers(ctx context.Context, kind project_model.ItemKind, objectID int64) ([]int64, error) {
	ids := make([]int64, 0, 10)
	return ids, db.GetEngine(ctx).Table("watch").
		Where("kind=? AND object_id=?", string(kind), objectID).
		In("mode", int8(ModeNormal), int8(ModeAuto)).
		Cols("user_id").
		OrderBy("user_id").
		Find(&ids)
}

// GetExplicitWatchers returns the ids of the users who chose to watch an item
func GetExplicitWatchers(ctx context.Context, kind project_model.ItemKind, objectID int64) ([]int64, error) {
	ids := make([]int64, 0, 10)
	return ids, db.GetEngine(ctx).Table("watch").
		Where("kind=? AND object_id=? AND mode=?", string(kind), objectID, int8(ModeNormal)).
		Cols("user_id").
		OrderBy("user_id").
		Find(&ids)
}

// GetMutedUsers returns the ids of the users who asked not to hear about an item
func GetMutedUsers(ctx context.Context, kind project_model.ItemKind, objectID int64) ([]int64, error) {
	ids := make([]int64, 0, 2)
	return ids, db.GetEngine(ctx).Table("watch").
		Where("kind=? AND object_id=? AND mode=?", string(kind), objectID, int8(ModeDont)).
		Cols("user_id").
		Find(&ids)
}

// IsWatching reports whether the user watches the item
func IsWatching(ctx context.Context, userID int64, kind project_model.ItemKind, objectID int64) (bool, error) {
	w, exists, err := getWatch(ctx, userID, kind, objectID)
	if err != nil || !exists {
		return false, err
	}
	return w.IsWatching(), nil
}

// DeleteItemWatches removes every watch of an item
func DeleteItemWatches(ctx context.Context, kind project_model.ItemKind, objectID int64) error {
	_, err := db.GetEngine(ctx).Where("kind=? AND object_id=?", string(kind), objectID).Delete(new(Watch))
	return err
}

// DeleteProjectWatches removes every watch on items of the project
func DeleteProjectWatches(ctx context.Context, projectID int64) error {
	_, err := db.GetEngine(ctx).Where("project_id=?", projectID).Delete(new(Watch))
	return err
}
