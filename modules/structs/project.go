// Copyright 2015 The Gogs Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package structs

import "time"

// Project represents a project
type Project struct {
	ID           int64             `json:"id"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	Description  string            `json:"description"`
	OwnerID      int64             `json:"owner_id"`
	IsPrivate    bool              `json:"is_private"`
	ImportedFrom string            `json:"imported_from,omitempty"`
	TagsColors   map[string]string `json:"tags_colors"`
	LastRefs     map[string]int64  `json:"last_refs"`
	Created      time.Time         `json:"created_at"`
	Updated      time.Time         `json:"updated_at"`
}

// CreateProjectOption options for creating a project
type CreateProjectOption struct {
	// required:true
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
}

// Role represents a role of a project
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Order       int64    `json:"order"`
	Computable  bool     `json:"computable"`
	Permissions []string `json:"permissions"`
}

// CreateRoleOption options for adding a role to a project
type CreateRoleOption struct {
	// required:true
	Name        string   `json:"name"`
	Computable  bool     `json:"computable"`
	Permissions []string `json:"permissions"`
}

// Ref is a ref handed out by a project counter
type Ref struct {
	Kind string `json:"kind"`
	Ref  int64  `json:"ref"`
}
