// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
)

// RelatedUserStory links a user story to an epic at a position of the epic list
type RelatedUserStory struct {
	ID          int64 `xorm:"pk autoincr"`
	EpicID      int64 `xorm:"INDEX UNIQUE(epic_story) NOT NULL"`
	UserStoryID int64 `xorm:"INDEX UNIQUE(epic_story) NOT NULL"`
	Order       int64 `xorm:"'sort_order' NOT NULL DEFAULT 0"`
}

func init() {
	db.RegisterModel(new(RelatedUserStory))
}

// GetRelatedUserStories returns the links of the epic in list order
func GetRelatedUserStories(ctx context.Context, epicID int64) ([]*RelatedUserStory, error) {
	related := make([]*RelatedUserStory, 0, 10)
	return related, db.GetEngine(ctx).Where("epic_id=?", epicID).OrderBy("sort_order, id").Find(&related)
}

// AddRelatedUserStory appends the user story to the list of the epic.
// Both must belong to the same project.
func AddRelatedUserStory(ctx context.Context, epic *Epic, us *UserStory) (*RelatedUserStory, error) {
	if epic.ProjectID != us.ProjectID {
		return nil, ErrPreconditionFailed{Reason: "user story and epic belong to different projects"}
	}
	return db.WithTx2(ctx, func(ctx context.Context) (*RelatedUserStory, error) {
		has, err := db.GetEngine(ctx).Exist(&RelatedUserStory{EpicID: epic.ID, UserStoryID: us.ID})
		if err != nil {
			return nil, err
		} else if has {
			return nil, NewErrValidation("user_story", "user story %d is already related to epic %d", us.ID, epic.ID)
		}
		var maxOrder int64
		if _, err := db.GetEngine(ctx).SQL("SELECT COALESCE(MAX(sort_order), 0) FROM related_user_story WHERE epic_id = ?", epic.ID).Get(&maxOrder); err != nil {
			return nil, err
		}
		r := &RelatedUserStory{EpicID: epic.ID, UserStoryID: us.ID, Order: maxOrder + 1}
		return r, db.Insert(ctx, r)
	})
}

// MoveRelatedUserStory places the user story at order, the following links are shifted down
func MoveRelatedUserStory(ctx context.Context, epicID, userStoryID, order int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		if _, err := db.GetEngine(ctx).Exec("UPDATE related_user_story SET sort_order = sort_order + 1 WHERE epic_id = ? AND sort_order >= ? AND user_story_id <> ?",
			epicID, order, userStoryID); err != nil {
			return err
		}
		affected, err := db.GetEngine(ctx).Where("epic_id=? AND user_story_id=?", epicID, userStoryID).
			Cols("sort_order").Update(&RelatedUserStory{Order: order})
		if err != nil {
			return err
		} else if affected == 0 {
			return NewErrValidation("user_story", "user story %d is not related to epic %d", userStoryID, epicID)
		}
		return nil
	})
}

// RemoveRelatedUserStory unlinks the user story from the epic
func RemoveRelatedUserStory(ctx context.Context, epicID, userStoryID int64) error {
	_, err := db.GetEngine(ctx).Delete(&RelatedUserStory{EpicID: epicID, UserStoryID: userStoryID})
	return err
}

// DeleteRelatedOfEpic removes every link of the epic
func DeleteRelatedOfEpic(ctx context.Context, epicID int64) error {
	_, err := db.GetEngine(ctx).Delete(&RelatedUserStory{EpicID: epicID})
	return err
}

// DeleteRelatedOfUserStory removes every link to the user story
func DeleteRelatedOfUserStory(ctx context.Context, userStoryID int64) error {
	_, err := db.GetEngine(ctx).Delete(&RelatedUserStory{UserStoryID: userStoryID})
	return err
}
