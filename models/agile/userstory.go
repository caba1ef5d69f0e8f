// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// UserStory is a backlog item, it may belong to a milestone and group tasks.
// IsClosed and FinishDate are derived from the status and the tasks.
type UserStory struct {
	ID           int64    `xorm:"pk autoincr"`
	ProjectID    int64    `xorm:"INDEX UNIQUE(project_ref) NOT NULL"`
	Ref          int64    `xorm:"UNIQUE(project_ref) NOT NULL"`
	Subject      string   `xorm:"NOT NULL"`
	Description  string   `xorm:"TEXT"`
	StatusID     int64    `xorm:"INDEX"`
	MilestoneID  int64    `xorm:"INDEX"`
	AssignedToID int64    `xorm:"INDEX"`
	OwnerID      int64    `xorm:"INDEX"`
	Tags         []string `xorm:"JSON TEXT"`
	BacklogOrder int64    `xorm:"NOT NULL DEFAULT 0"`

	IsClosed   bool               `xorm:"INDEX NOT NULL DEFAULT false"`
	FinishDate timeutil.TimeStamp `xorm:"INDEX"`

	Version     int64              `xorm:"version"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(UserStory))
}

func (*UserStory) ItemKind() project_model.ItemKind     { return project_model.KindUserStory }
func (us *UserStory) GetID() int64                       { return us.ID }
func (us *UserStory) GetProjectID() int64                { return us.ProjectID }
func (us *UserStory) GetVersion() int64                  { return us.Version }
func (us *UserStory) GetOwnerID() int64                  { return us.OwnerID }
func (us *UserStory) GetAssignedToID() int64             { return us.AssignedToID }
func (us *UserStory) GetCreatedUnix() timeutil.TimeStamp { return us.CreatedUnix }
func (us *UserStory) GetRef() int64                      { return us.Ref }
func (us *UserStory) GetStatusID() int64                 { return us.StatusID }
func (us *UserStory) GetTags() []string                  { return us.Tags }

// GetUserStoryByID returns the user story with the given id
func GetUserStoryByID(ctx context.Context, id int64) (*UserStory, error) {
	us := new(UserStory)
	has, err := db.GetEngine(ctx).ID(id).Get(us)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindUserStory, ID: id}
	}
	return us, nil
}

// GetUserStoryByRef returns the user story of the project holding ref
func GetUserStoryByRef(ctx context.Context, projectID, ref int64) (*UserStory, error) {
	us := new(UserStory)
	has, err := db.GetEngine(ctx).Where("project_id=? AND ref=?", projectID, ref).Get(us)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindUserStory}
	}
	return us, nil
}

// GetUserStoriesByMilestone returns the user stories planned in the milestone
func GetUserStoriesByMilestone(ctx context.Context, milestoneID int64) ([]*UserStory, error) {
	stories := make([]*UserStory, 0, 10)
	return stories, db.GetEngine(ctx).Where("milestone_id=?", milestoneID).OrderBy("id").Find(&stories)
}

// GetUserStoriesByIDs returns the user stories of the given ids keyed by id
func GetUserStoriesByIDs(ctx context.Context, ids []int64) (map[int64]*UserStory, error) {
	stories := make(map[int64]*UserStory, len(ids))
	if len(ids) == 0 {
		return stories, nil
	}
	return stories, db.GetEngine(ctx).In("id", ids).Find(&stories)
}

// GetProjectUserStories returns every user story of the project ordered by ref
func GetProjectUserStories(ctx context.Context, projectID int64) ([]*UserStory, error) {
	stories := make([]*UserStory, 0, 50)
	return stories, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("ref").Find(&stories)
}
