// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// Project is the container of every catalog and agile item
type Project struct {
	ID          int64  `xorm:"pk autoincr"`
	Name        string `xorm:"NOT NULL"`
	Slug        string `xorm:"UNIQUE NOT NULL"`
	Description string `xorm:"TEXT"`
	OwnerID     int64  `xorm:"INDEX NOT NULL"`
	IsPrivate   bool

	// last refs handed out, mirrored from the reference counters
	LastUSRef    int64 `xorm:"'last_us_ref' NOT NULL DEFAULT 0"`
	LastTaskRef  int64 `xorm:"NOT NULL DEFAULT 0"`
	LastIssueRef int64 `xorm:"NOT NULL DEFAULT 0"`
	LastEpicRef  int64 `xorm:"NOT NULL DEFAULT 0"`

	TagsColors map[string]string `xorm:"JSON TEXT"`

	// ImportedFrom names the source of an imported project, for example "jira"
	ImportedFrom string

	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(Project))
}

// lastRefColumn returns the project column mirroring the counter of kind
func lastRefColumn(kind ItemKind) (string, bool) {
	switch kind {
	case KindUserStory:
		return "last_us_ref", true
	case KindTask:
		return "last_task_ref", true
	case KindIssue:
		return "last_issue_ref", true
	case KindEpic:
		return "last_epic_ref", true
	}
	return "", false
}

// LastRef returns the mirrored counter of kind
func (p *Project) LastRef(kind ItemKind) int64 {
	switch kind {
	case KindUserStory:
		return p.LastUSRef
	case KindTask:
		return p.LastTaskRef
	case KindIssue:
		return p.LastIssueRef
	case KindEpic:
		return p.LastEpicRef
	}
	return 0
}

// CreateProject inserts a project, the slug is derived from the name when empty and made unique
func CreateProject(ctx context.Context, p *Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return util.NewInvalidArgumentErrorf("project name is empty")
	}
	if p.OwnerID <= 0 {
		return util.NewInvalidArgumentErrorf("project owner is required")
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		slug, err := uniqueSlug(ctx, util.Iif(p.Slug != "", p.Slug, p.Name))
		if err != nil {
			return err
		}
		p.Slug = slug
		if p.TagsColors == nil {
			p.TagsColors = map[string]string{}
		}
		if p.CreatedUnix != 0 {
			// imported projects keep their source timestamps
			_, err = db.GetEngine(ctx).NoAutoTime().Insert(p)
			return err
		}
		return db.Insert(ctx, p)
	})
}

func uniqueSlug(ctx context.Context, name string) (string, error) {
	base := util.Slugify(name)
	if base == "" {
		base = "project"
	}
	slug := base
	for i := 1; ; i++ {
		has, err := db.GetEngine(ctx).Exist(&Project{Slug: slug})
		if err != nil {
			return "", err
		}
		if !has {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// GetProjectByID returns the project with the given id
func GetProjectByID(ctx context.Context, id int64) (*Project, error) {
	p := new(Project)
	has, err := db.GetEngine(ctx).ID(id).Get(p)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrProjectNotExist{ID: id}
	}
	return p, nil
}

// GetProjectIDs returns the ids of all projects
func GetProjectIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, 10)
	return ids, db.GetEngine(ctx).Table("project").Asc("id").Cols("id").Find(&ids)
}

// GetProjectBySlug returns the project with the given slug
func GetProjectBySlug(ctx context.Context, slug string) (*Project, error) {
	p := &Project{Slug: slug}
	has, err := db.GetEngine(ctx).Get(p)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrProjectNotExist{Slug: slug}
	}
	return p, nil
}

// UpdateProjectCols updates the given columns of the project
func UpdateProjectCols(ctx context.Context, p *Project, cols ...string) error {
	_, err := db.GetEngine(ctx).ID(p.ID).Cols(cols...).Update(p)
	return err
}

// LockProject takes the row lock of the project, it must be the first lock of a transaction
func LockProject(ctx context.Context, projectID int64) error {
	return db.LockRowsForUpdate(ctx, "project", projectID)
}

// SetLastRef moves the mirrored counter of kind forward, it never moves backwards
func SetLastRef(ctx context.Context, projectID int64, kind ItemKind, ref int64) error {
	col, ok := lastRefColumn(kind)
	if !ok {
		return util.NewInvalidArgumentErrorf("kind %s has no ref", kind)
	}
	_, err := db.GetEngine(ctx).Exec(fmt.Sprintf("UPDATE project SET %[1]s = ? WHERE id = ? AND %[1]s < ?", col), ref, projectID, ref)
	return err
}

// ResetLastRef sets the mirrored counter of kind to ref, used after an import rebuilt the counters
func ResetLastRef(ctx context.Context, projectID int64, kind ItemKind, ref int64) error {
	col, ok := lastRefColumn(kind)
	if !ok {
		return util.NewInvalidArgumentErrorf("kind %s has no ref", kind)
	}
	_, err := db.GetEngine(ctx).Exec(fmt.Sprintf("UPDATE project SET %s = ? WHERE id = ?", col), ref, projectID)
	return err
}

// DeleteProjectRows deletes the project row and its catalogs, memberships and counters.
// The agile items are removed by the caller first.
func DeleteProjectRows(ctx context.Context, projectID int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		if err := db.DeleteBeans(ctx,
			&Status{ProjectID: projectID},
			&Priority{ProjectID: projectID},
			&Severity{ProjectID: projectID},
			&IssueType{ProjectID: projectID},
			&Points{ProjectID: projectID},
			&Membership{ProjectID: projectID},
			&Role{ProjectID: projectID},
		); err != nil {
			return err
		}
		if err := db.DeleteResourceIndex(ctx, projectID); err != nil {
			return err
		}
		_, err := db.DeleteByID[Project](ctx, projectID)
		return err
	})
}
