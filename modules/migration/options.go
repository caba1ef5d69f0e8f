// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

// Sources an import can read from
const (
	SourceJira    = "jira"
	SourcePivotal = "pivotal"
	SourceFile    = "file"
)

// ImportOptions defines the way a foreign project gets imported
type ImportOptions struct {
	Source string `json:"source"`
	// ProjectKey is the JIRA project key or the Pivotal project id
	ProjectKey   string `json:"project_key"`
	BaseURL      string `json:"base_url"`
	AuthToken    string `json:"-"`
	AuthUsername string `json:"-"`
	AuthPassword string `json:"-"`
	// FilePath is the YAML or JSON dump read by the file source
	FilePath string `json:"file_path"`

	OwnerID     int64  `json:"owner_id"`
	ProjectName string `json:"project_name"`
	IsPrivate   bool   `json:"is_private"`

	// UserBindings maps foreign user ids to local user ids, unbound authors become ghosts
	UserBindings map[string]int64 `json:"user_bindings"`

	Attachments bool `json:"attachments"`
	History     bool `json:"history"`
}
