// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
)

// Epic groups user stories of a project through RelatedUserStory
type Epic struct {
	ID           int64    `xorm:"pk autoincr"`
	ProjectID    int64    `xorm:"INDEX UNIQUE(project_ref) NOT NULL"`
	Ref          int64    `xorm:"UNIQUE(project_ref) NOT NULL"`
	Subject      string   `xorm:"NOT NULL"`
	Description  string   `xorm:"TEXT"`
	StatusID     int64    `xorm:"INDEX"`
	AssignedToID int64    `xorm:"INDEX"`
	OwnerID      int64    `xorm:"INDEX"`
	Tags         []string `xorm:"JSON TEXT"`
	Color        string   `xorm:"VARCHAR(32)"`
	EpicsOrder   int64    `xorm:"NOT NULL DEFAULT 0"`

	Version     int64              `xorm:"version"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(Epic))
}

func (*Epic) ItemKind() project_model.ItemKind     { return project_model.KindEpic }
func (e *Epic) GetID() int64                       { return e.ID }
func (e *Epic) GetProjectID() int64                { return e.ProjectID }
func (e *Epic) GetVersion() int64                  { return e.Version }
func (e *Epic) GetOwnerID() int64                  { return e.OwnerID }
func (e *Epic) GetAssignedToID() int64             { return e.AssignedToID }
func (e *Epic) GetCreatedUnix() timeutil.TimeStamp { return e.CreatedUnix }
func (e *Epic) GetRef() int64                      { return e.Ref }
func (e *Epic) GetStatusID() int64                 { return e.StatusID }
func (e *Epic) GetTags() []string                  { return e.Tags }

// GetEpicByID returns the epic with the given id
func GetEpicByID(ctx context.Context, id int64) (*Epic, error) {
	e := new(Epic)
	has, err := db.GetEngine(ctx).ID(id).Get(e)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindEpic, ID: id}
	}
	return e, nil
}

// GetProjectEpics returns every epic of the project ordered by ref
func GetProjectEpics(ctx context.Context, projectID int64) ([]*Epic, error) {
	epics := make([]*Epic, 0, 10)
	return epics, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("ref").Find(&epics)
}
