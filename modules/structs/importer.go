// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package structs

import "time"

// ImportProjectOption options for importing a project from another tracker
type ImportProjectOption struct {
	// required:true
	Source string `json:"source"`
	// ProjectKey is the JIRA project key or the Pivotal project id
	ProjectKey   string           `json:"project_key"`
	BaseURL      string           `json:"base_url"`
	AuthToken    string           `json:"auth_token"`
	AuthUsername string           `json:"auth_username"`
	AuthPassword string           `json:"auth_password"`
	ProjectName  string           `json:"project_name"`
	IsPrivate    bool             `json:"is_private"`
	UserBindings map[string]int64 `json:"user_bindings"`
	Attachments  bool             `json:"attachments"`
	History      bool             `json:"history"`
}

// ImportJob represents the state of a project import
type ImportJob struct {
	UUID      string     `json:"uuid"`
	Source    string     `json:"source"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	Error     string     `json:"error,omitempty"`
	ProjectID int64      `json:"project_id,omitempty"`
	Created   time.Time  `json:"created_at"`
	Finished  *time.Time `json:"finished_at,omitempty"`
}
