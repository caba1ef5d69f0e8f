// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import "time"

// Project defines a standard foreign project
type Project struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	OriginalURL string    `json:"original_url" yaml:"original_url"`
	IsPrivate   bool      `json:"is_private" yaml:"is_private"`
	Created     time.Time `json:"created" yaml:"created"`
}

// User is an account of the source, bound to a local user through ImportOptions.UserBindings
type User struct {
	ExternalID string `json:"external_id" yaml:"external_id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
}

// Status is an entry of a foreign workflow, Kind is one of userstory, task, issue or epic
type Status struct {
	Kind     string `json:"kind" yaml:"kind"`
	Name     string `json:"name" yaml:"name"`
	IsClosed bool   `json:"is_closed" yaml:"is_closed"`
	// Known is false when the source does not tell whether the status is closed
	Known bool   `json:"known" yaml:"known"`
	Color string `json:"color" yaml:"color"`
}
