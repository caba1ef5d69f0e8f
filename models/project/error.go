// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"fmt"

	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// ErrProjectNotExist represents a "ProjectNotExist" kind of error.
type ErrProjectNotExist struct {
	ID   int64
	Slug string
}

// IsErrProjectNotExist checks if an error is a ErrProjectNotExist
func IsErrProjectNotExist(err error) bool {
	_, ok := err.(ErrProjectNotExist)
	return ok
}

func (err ErrProjectNotExist) Error() string {
	return fmt.Sprintf("project does not exist [id: %d, slug: %s]", err.ID, err.Slug)
}

func (err ErrProjectNotExist) Unwrap() error {
	return util.ErrNotExist
}

// ErrCatalogEntryNotExist is returned when a status, priority, severity, type, points or role is missing
// or belongs to another project
type ErrCatalogEntryNotExist struct {
	Catalog   string
	ID        int64
	ProjectID int64
}

// IsErrCatalogEntryNotExist checks if an error is a ErrCatalogEntryNotExist
func IsErrCatalogEntryNotExist(err error) bool {
	_, ok := err.(ErrCatalogEntryNotExist)
	return ok
}

func (err ErrCatalogEntryNotExist) Error() string {
	return fmt.Sprintf("%s does not exist in project [id: %d, project_id: %d]", err.Catalog, err.ID, err.ProjectID)
}

func (err ErrCatalogEntryNotExist) Unwrap() error {
	return util.ErrNotExist
}

// ErrMembershipNotExist represents a missing membership
type ErrMembershipNotExist struct {
	ProjectID int64
	UserID    int64
	Token     string
}

// IsErrMembershipNotExist checks if an error is a ErrMembershipNotExist
func IsErrMembershipNotExist(err error) bool {
	_, ok := err.(ErrMembershipNotExist)
	return ok
}

func (err ErrMembershipNotExist) Error() string {
	return fmt.Sprintf("membership does not exist [project_id: %d, user_id: %d]", err.ProjectID, err.UserID)
}

func (err ErrMembershipNotExist) Unwrap() error {
	return util.ErrNotExist
}
