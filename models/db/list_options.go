// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package db

import (
	"context"

	"xorm.io/builder"
	"xorm.io/xorm"
)

const (
	// DefaultMaxInSize represents default variables number on IN () in SQL
	DefaultMaxInSize = 50
	defaultFindSliceSize = 10
	// MaxPageSize bounds the page size of listing requests
	MaxPageSize = 200
	// DefaultPageSize is used when no page size is given
	DefaultPageSize = 30
)

// Paginator is the base for different ListOptions types
type Paginator interface {
	GetSkipTake() (skip, take int)
	IsListAll() bool
}

// SetSessionPagination sets pagination for a database session
func SetSessionPagination(sess Engine, p Paginator) *xorm.Session {
	skip, take := p.GetSkipTake()

	return sess.Limit(take, skip)
}

// ListOptions options to paginate results
type ListOptions struct {
	PageSize int
	Page     int  // start from 1
	ListAll  bool // if true, then PageSize and Page will not be taken
}

var ListOptionsAll = ListOptions{ListAll: true}

var (
	_ Paginator   = &ListOptions{}
	_ FindOptions = ListOptions{}
)

// GetSkipTake returns the skip and take values
func (opts *ListOptions) GetSkipTake() (skip, take int) {
	opts.SetDefaultValues()
	return (opts.Page - 1) * opts.PageSize, opts.PageSize
}

func (opts ListOptions) GetPage() int {
	return opts.Page
}

func (opts ListOptions) GetPageSize() int {
	return opts.PageSize
}

// IsListAll indicates PageSize and Page will be ignored
func (opts ListOptions) IsListAll() bool {
	return opts.ListAll
}

// SetDefaultValues sets default values
func (opts *ListOptions) SetDefaultValues() {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
}

func (opts ListOptions) ToConds() builder.Cond {
	return builder.NewCond()
}

// FindOptions represents a find options
type FindOptions interface {
	GetPage() int
	GetPageSize() int
	IsListAll() bool
	ToConds() builder.Cond
}

type FindOptionsOrder interface {
	ToOrders() string
}

func getPaginatedSession(ctx context.Context, opts FindOptions) *xorm.Session {
	sess := GetEngine(ctx).Where(opts.ToConds())

	if !opts.IsListAll() {
		page, pageSize := opts.GetPage(), opts.GetPageSize()
		if pageSize <= 0 {
			pageSize = DefaultPageSize
		}
		if page <= 0 {
			page = 1
		}
		sess = sess.Limit(pageSize, (page-1)*pageSize)
	}
	if o, ok := opts.(FindOptionsOrder); ok && o.ToOrders() != "" {
		sess = sess.OrderBy(o.ToOrders())
	}
	return sess
}

// Find represents a common find function which accept an options interface
func Find[T any](ctx context.Context, opts FindOptions) ([]*T, error) {
	sess := getPaginatedSession(ctx, opts)
	findPageSize := defaultFindSliceSize
	if !opts.IsListAll() && opts.GetPageSize() > 0 {
		findPageSize = opts.GetPageSize()
	}
	objects := make([]*T, 0, findPageSize)
	if err := sess.Find(&objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// Count represents a common count function which accept an options interface
func Count[T any](ctx context.Context, opts FindOptions) (int64, error) {
	var object T
	return GetEngine(ctx).Where(opts.ToConds()).Count(&object)
}
