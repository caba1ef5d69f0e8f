// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// Milestone is a sprint of the project.
// Closed is derived from its user stories and tasks while it holds any.
type Milestone struct {
	ID              int64              `xorm:"pk autoincr"`
	ProjectID       int64              `xorm:"INDEX UNIQUE(project_name) UNIQUE(project_slug) NOT NULL"`
	Name            string             `xorm:"UNIQUE(project_name) NOT NULL"`
	Slug            string             `xorm:"UNIQUE(project_slug) NOT NULL"`
	OwnerID         int64              `xorm:"INDEX"`
	EstimatedStart  timeutil.TimeStamp `xorm:"INDEX"`
	EstimatedFinish timeutil.TimeStamp `xorm:"INDEX"`
	Closed          bool               `xorm:"INDEX NOT NULL DEFAULT false"`
	Disponibility   float64            `xorm:"NOT NULL DEFAULT 0"`
	SortOrder       int64              `xorm:"NOT NULL DEFAULT 1"`

	Version     int64              `xorm:"version"`
	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(Milestone))
}

func (*Milestone) ItemKind() project_model.ItemKind     { return project_model.KindMilestone }
func (m *Milestone) GetID() int64                       { return m.ID }
func (m *Milestone) GetProjectID() int64                { return m.ProjectID }
func (m *Milestone) GetVersion() int64                  { return m.Version }
func (m *Milestone) GetOwnerID() int64                  { return m.OwnerID }
func (m *Milestone) GetAssignedToID() int64             { return 0 }
func (m *Milestone) GetCreatedUnix() timeutil.TimeStamp { return m.CreatedUnix }

// GetMilestoneByID returns the milestone with the given id
func GetMilestoneByID(ctx context.Context, id int64) (*Milestone, error) {
	m := new(Milestone)
	has, err := db.GetEngine(ctx).ID(id).Get(m)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindMilestone, ID: id}
	}
	return m, nil
}

// GetProjectMilestones returns the milestones of the project ordered by estimated start
func GetProjectMilestones(ctx context.Context, projectID int64) ([]*Milestone, error) {
	milestones := make([]*Milestone, 0, 10)
	return milestones, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("estimated_start, id").Find(&milestones)
}

// GetMilestoneByName returns the milestone of the project with the given name
func GetMilestoneByName(ctx context.Context, projectID int64, name string) (*Milestone, error) {
	m := new(Milestone)
	has, err := db.GetEngine(ctx).Where("project_id=? AND name=?", projectID, name).Get(m)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrNotExist{Kind: project_model.KindMilestone}
	}
	return m, nil
}

// CheckMilestoneName validates the name of m and derives its slug, names are unique in a project
func CheckMilestoneName(ctx context.Context, m *Milestone) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return NewErrValidation("name", "milestone name is empty")
	}
	has, err := db.GetEngine(ctx).Where("project_id=? AND name=? AND id<>?", m.ProjectID, m.Name, m.ID).Exist(new(Milestone))
	if err != nil {
		return err
	} else if has {
		return NewErrValidation("name", "milestone %q already exists in the project", m.Name)
	}
	base := util.Slugify(m.Name)
	if base == "" {
		base = "sprint"
	}
	slug := base
	for i := 1; ; i++ {
		has, err := db.GetEngine(ctx).Where("project_id=? AND slug=? AND id<>?", m.ProjectID, slug, m.ID).Exist(new(Milestone))
		if err != nil {
			return err
		}
		if !has {
			m.Slug = slug
			return nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// CountMilestoneItems returns the number of user stories and tasks planned in the milestone
func CountMilestoneItems(ctx context.Context, milestoneID int64) (int64, error) {
	stories, err := db.GetEngine(ctx).Where("milestone_id=?", milestoneID).Count(new(UserStory))
	if err != nil {
		return 0, err
	}
	tasks, err := db.GetEngine(ctx).Where("milestone_id=?", milestoneID).Count(new(Task))
	if err != nil {
		return 0, err
	}
	return stories + tasks, nil
}
