// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Issue is a bug, question or enhancement, FinishedDate is set while its status is closed
type Issue struct {
	ID           int64    `xorm:"pk autoincr"`
	ProjectID    int64    `xorm:"INDEX UNIQUE(project_ref) NOT NULL"`
	Ref          int64    `xorm:"UNIQUE(project_ref) NOT NULL"`
	Subject      string   `xorm:"NOT NULL"`
	Description  string   `xorm:"TEXT"`
	StatusID     int64    `xorm:"INDEX"`
	SeverityID   int64    `xorm:"INDEX"`
	PriorityID   int64    `xorm:"INDEX"`
	TypeID       int64    `xorm:"INDEX"`
	MilestoneID  int64    `xorm:"INDEX"`
	AssignedToID int64    `xorm:"INDEX"`
	OwnerID      int64    `xorm:"INDEX"`
	Tags         []string `xorm:"JSON TEXT"`

	FinishedDate timeutil.TimeStamp `xorm:"INDEX"`

	Version     int64              `xorm:"version"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(Issue))
}

func (*Issue) ItemKind() project_model.ItemKind     { return project_model.KindIssue }
func (i *Issue) GetID() int64                       { return i.ID }
func (i *Issue) GetProjectID() int64                { return i.ProjectID }
func (i *Issue) GetVersion() int64                  { return i.Version }
func (i *Issue) GetOwnerID() int64                  { return i.OwnerID }
func (i *Issue) GetAssignedToID() int64             { return i.AssignedToID }
func (i *Issue) GetCreatedUnix() timeutil.TimeStamp { return i.CreatedUnix }
func (i *Issue) GetRef() int64                      { return i.Ref }
func (i *Issue) GetStatusID() int64                 { return i.StatusID }
func (i *Issue) GetTags() []string                  { return i.Tags }

// GetIssueByID returns the issue with the given id
func GetIssueByID(ctx context.Context, id int64) (*Issue, error) {
	i := new(Issue)
	has, err := db.GetEngine(ctx).ID(id).Get(i)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindIssue, ID: id}
	}
	return i, nil
}

// GetProjectIssues returns every issue of the project ordered by ref
func GetProjectIssues(ctx context.Context, projectID int64) ([]*Issue, error) {
	issues := make([]*Issue, 0, 50)
	return issues, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("ref").Find(&issues)
}

// GetIssuesByMilestone returns the issues planned in the milestone
func GetIssuesByMilestone(ctx context.Context, milestoneID int64) ([]*Issue, error) {
	issues := make([]*Issue, 0, 10)
	return issues, db.GetEngine(ctx).Where("milestone_id=?", milestoneID).OrderBy("id").Find(&issues)
}
