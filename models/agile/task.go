// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Task is a unit of work, a task with a user story always shares its milestone
type Task struct {
	ID             int64    `xorm:"pk autoincr"`
	ProjectID      int64    `xorm:"INDEX UNIQUE(project_ref) NOT NULL"`
	Ref            int64    `xorm:"UNIQUE(project_ref) NOT NULL"`
	Subject        string   `xorm:"NOT NULL"`
	Description    string   `xorm:"TEXT"`
	StatusID       int64    `xorm:"INDEX"`
	UserStoryID    int64    `xorm:"INDEX"`
	MilestoneID    int64    `xorm:"INDEX"`
	AssignedToID   int64    `xorm:"INDEX"`
	OwnerID        int64    `xorm:"INDEX"`
	Tags           []string `xorm:"JSON TEXT"`
	TaskboardOrder int64    `xorm:"NOT NULL DEFAULT 0"`
	IsIocaine      bool     `xorm:"NOT NULL DEFAULT false"`

	FinishedDate timeutil.TimeStamp `xorm:"INDEX"`

	Version     int64              `xorm:"version"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(Task))
}

func (*Task) ItemKind() project_model.ItemKind     { return project_model.KindTask }
func (t *Task) GetID() int64                       { return t.ID }
func (t *Task) GetProjectID() int64                { return t.ProjectID }
func (t *Task) GetVersion() int64                  { return t.Version }
func (t *Task) GetOwnerID() int64                  { return t.OwnerID }
func (t *Task) GetAssignedToID() int64             { return t.AssignedToID }
func (t *Task) GetCreatedUnix() timeutil.TimeStamp { return t.CreatedUnix }
func (t *Task) GetRef() int64                      { return t.Ref }
func (t *Task) GetStatusID() int64                 { return t.StatusID }
func (t *Task) GetTags() []string                  { return t.Tags }

// GetTaskByID returns the task with the given id
func GetTaskByID(ctx context.Context, id int64) (*Task, error) {
	t := new(Task)
	has, err := db.GetEngine(ctx).ID(id).Get(t)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindTask, ID: id}
	}
	return t, nil
}

// GetTasksByUserStory returns the tasks of a user story ordered by id
func GetTasksByUserStory(ctx context.Context, userStoryID int64) ([]*Task, error) {
	tasks := make([]*Task, 0, 10)
	return tasks, db.GetEngine(ctx).Where("user_story_id=?", userStoryID).OrderBy("id").Find(&tasks)
}

// GetTasksByMilestone returns the tasks planned in the milestone
func GetTasksByMilestone(ctx context.Context, milestoneID int64) ([]*Task, error) {
	tasks := make([]*Task, 0, 10)
	return tasks, db.GetEngine(ctx).Where("milestone_id=?", milestoneID).OrderBy("id").Find(&tasks)
}

// GetProjectTasks returns every task of the project ordered by ref
func GetProjectTasks(ctx context.Context, projectID int64) ([]*Task, error) {
	tasks := make([]*Task, 0, 50)
	return tasks, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("ref").Find(&tasks)
}
