// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"xorm.io/builder"
)

// Status is an entry of the per project and per kind status catalog.
// IsClosed is the only bit the closure cascades look at.
type Status struct {
	ID         int64    `xorm:"pk autoincr"`
	ProjectID  int64    `xorm:"INDEX NOT NULL"`
	Kind       ItemKind `xorm:"VARCHAR(16) INDEX NOT NULL"`
	Name       string   `xorm:"NOT NULL"`
	Slug       string
	SortOrder  int64 `xorm:"NOT NULL DEFAULT 0"`
	IsClosed   bool  `xorm:"NOT NULL DEFAULT false"`
	IsArchived bool  `xorm:"NOT NULL DEFAULT false"`
	Color      string
}

// TableName sets the table name of the status catalog
func (*Status) TableName() string {
	return "work_item_status"
}

func init() {
	db.RegisterModel(new(Status))
}

// StatusList is a list of statuses
type StatusList []*Status

// ClosedIDs returns the ids of the closed statuses
func (sl StatusList) ClosedIDs() []int64 {
	ids := make([]int64, 0, len(sl))
	for _, s := range sl {
		if s.IsClosed {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// GetStatuses returns the catalog of kind ordered by sort order
func GetStatuses(ctx context.Context, projectID int64, kind ItemKind) (StatusList, error) {
	statuses := make(StatusList, 0, 8)
	return statuses, db.GetEngine(ctx).
		Where("project_id=? AND kind=?", projectID, string(kind)).
		OrderBy("sort_order ASC, id ASC").
		Find(&statuses)
}

// GetProjectStatuses returns the statuses of every catalog of the project keyed by id
func GetProjectStatuses(ctx context.Context, projectID int64) (map[int64]*Status, error) {
	statuses := make(map[int64]*Status, 24)
	return statuses, db.GetEngine(ctx).Where("project_id=?", projectID).Find(&statuses)
}

// GetStatusByID returns a status of the project catalog of kind
func GetStatusByID(ctx context.Context, projectID int64, kind ItemKind, id int64) (*Status, error) {
	s, has, err := db.Get[Status](ctx, builder.Eq{"id": id, "project_id": projectID, "kind": string(kind)})
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrCatalogEntryNotExist{Catalog: string(kind) + " status", ID: id, ProjectID: projectID}
	}
	return s, nil
}

// GetStatusesMapByIDs returns the statuses of the given ids keyed by id
func GetStatusesMapByIDs(ctx context.Context, ids []int64) (map[int64]*Status, error) {
	ids = util.SortedUnique(util.SliceRemoveAll(ids, 0))
	statuses := make(map[int64]*Status, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}
	return statuses, db.GetEngine(ctx).In("id", ids).Find(&statuses)
}

// GetDefaultStatus returns the first status of the catalog of kind
func GetDefaultStatus(ctx context.Context, projectID int64, kind ItemKind) (*Status, error) {
	s := new(Status)
	has, err := db.GetEngine(ctx).
		Where("project_id=? AND kind=?", projectID, string(kind)).
		OrderBy("sort_order ASC, id ASC").
		Get(s)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrCatalogEntryNotExist{Catalog: string(kind) + " status", ProjectID: projectID}
	}
	return s, nil
}

// CreateStatus appends a status to the end of the catalog of its kind
func CreateStatus(ctx context.Context, s *Status) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return util.NewInvalidArgumentErrorf("status name is empty")
	}
	if s.Slug == "" {
		s.Slug = util.Slugify(s.Name)
	}
	if s.Color == "" {
		s.Color = "#999999"
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		if s.SortOrder == 0 {
			maxOrder, err := maxSortOrder(ctx, "work_item_status", builder.Eq{"project_id": s.ProjectID, "kind": string(s.Kind)})
			if err != nil {
				return err
			}
			s.SortOrder = maxOrder + 1
		}
		return db.Insert(ctx, s)
	})
}

// GetOrCreateStatusByName finds a status of the catalog by name, case-insensitively.
// A missing status is appended to the end of the catalog with the given closed bit.
func GetOrCreateStatusByName(ctx context.Context, projectID int64, kind ItemKind, name string, isClosed bool) (*Status, bool, error) {
	statuses, err := GetStatuses(ctx, projectID, kind)
	if err != nil {
		return nil, false, err
	}
	for _, s := range statuses {
		if strings.EqualFold(s.Name, strings.TrimSpace(name)) {
			return s, false, nil
		}
	}
	s := &Status{ProjectID: projectID, Kind: kind, Name: name, IsClosed: isClosed}
	if err := CreateStatus(ctx, s); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func maxSortOrder(ctx context.Context, table string, cond builder.Cond) (int64, error) {
	var maxOrder int64
	_, err := db.GetEngine(ctx).Table(table).Where(cond).Select("COALESCE(MAX(sort_order), 0)").Get(&maxOrder)
	return maxOrder, err
}
