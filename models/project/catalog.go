// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"xorm.io/builder"
)

// Priority is an issue priority of a project
type Priority struct {
	ID        int64  `xorm:"pk autoincr"`
	ProjectID int64  `xorm:"INDEX NOT NULL"`
	Name      string `xorm:"NOT NULL"`
	SortOrder int64  `xorm:"NOT NULL DEFAULT 0"`
	Color     string
}

// Severity is an issue severity of a project
type Severity struct {
	ID        int64  `xorm:"pk autoincr"`
	ProjectID int64  `xorm:"INDEX NOT NULL"`
	Name      string `xorm:"NOT NULL"`
	SortOrder int64  `xorm:"NOT NULL DEFAULT 0"`
	Color     string
}

// IssueType is an issue type of a project
type IssueType struct {
	ID        int64  `xorm:"pk autoincr"`
	ProjectID int64  `xorm:"INDEX NOT NULL"`
	Name      string `xorm:"NOT NULL"`
	SortOrder int64  `xorm:"NOT NULL DEFAULT 0"`
	Color     string
}

// Points is an entry of the estimation scale, a nil Value is the unknown estimation "?"
type Points struct {
	ID        int64    `xorm:"pk autoincr"`
	ProjectID int64    `xorm:"INDEX NOT NULL"`
	Name      string   `xorm:"NOT NULL"`
	SortOrder int64    `xorm:"NOT NULL DEFAULT 0"`
	Value     *float64 `xorm:"NULL"`
}

// UnknownPointsName is the name of the default estimation
const UnknownPointsName = "?"

func init() {
	db.RegisterModel(new(Priority))
	db.RegisterModel(new(Severity))
	db.RegisterModel(new(IssueType))
	db.RegisterModel(new(Points))
}

// CatalogEntry is the common shape of the issue catalogs
type CatalogEntry interface {
	Priority | Severity | IssueType | Points
}

func catalogName[T CatalogEntry]() string {
	var zero T
	return strings.ToLower(fmt.Sprintf("%T", zero)[len("project."):])
}

// GetCatalogEntry returns an entry of a project catalog
func GetCatalogEntry[T CatalogEntry](ctx context.Context, projectID, id int64) (*T, error) {
	entry, has, err := db.Get[T](ctx, builder.Eq{"id": id, "project_id": projectID})
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrCatalogEntryNotExist{Catalog: catalogName[T](), ID: id, ProjectID: projectID}
	}
	return entry, nil
}

// GetCatalog returns the entries of a project catalog ordered by sort order
func GetCatalog[T CatalogEntry](ctx context.Context, projectID int64) ([]*T, error) {
	entries := make([]*T, 0, 8)
	return entries, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("sort_order ASC, id ASC").Find(&entries)
}

// GetDefaultCatalogEntry returns the first entry of a project catalog
func GetDefaultCatalogEntry[T CatalogEntry](ctx context.Context, projectID int64) (*T, error) {
	entry := new(T)
	has, err := db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("sort_order ASC, id ASC").Get(entry)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrCatalogEntryNotExist{Catalog: catalogName[T](), ProjectID: projectID}
	}
	return entry, nil
}

// GetCatalogNames returns id to name of catalog entries, used to render foreign keys of diffs
func GetCatalogNames[T CatalogEntry](ctx context.Context, ids []int64) (map[int64]string, error) {
	ids = util.SortedUnique(util.SliceRemoveAll(ids, 0))
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	type row struct {
		ID   int64
		Name string
	}
	var zero T
	rows := make([]row, 0, len(ids))
	if err := db.GetEngine(ctx).Table(&zero).In("id", ids).Cols("id", "name").Find(&rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

// GetUnknownPoints returns the "?" estimation of the project, it is created when missing
func GetUnknownPoints(ctx context.Context, projectID int64) (*Points, error) {
	p := new(Points)
	has, err := db.GetEngine(ctx).Where("project_id=? AND value IS NULL", projectID).OrderBy("sort_order ASC, id ASC").Get(p)
	if err != nil {
		return nil, err
	} else if has {
		return p, nil
	}
	p = &Points{ProjectID: projectID, Name: UnknownPointsName}
	return p, db.Insert(ctx, p)
}

// GetOrCreatePointsByValue returns the scale entry of the given value, a missing entry is appended
func GetOrCreatePointsByValue(ctx context.Context, projectID int64, value float64) (*Points, error) {
	p := new(Points)
	has, err := db.GetEngine(ctx).Where("project_id=? AND value=?", projectID, value).Get(p)
	if err != nil {
		return nil, err
	} else if has {
		return p, nil
	}
	maxOrder, err := maxSortOrder(ctx, "points", builder.Eq{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	p = &Points{ProjectID: projectID, Name: formatPoints(value), Value: &value, SortOrder: maxOrder + 1}
	return p, db.Insert(ctx, p)
}

func formatPoints(v float64) string {
	if v == 0.5 {
		return "1/2"
	}
	return fmt.Sprintf("%g", v)
}
