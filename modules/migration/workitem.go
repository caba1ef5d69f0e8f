// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import (
	"io"
	"time"
)

// Kinds of foreign work items
const (
	KindUserStory = "userstory"
	KindTask      = "task"
	KindIssue     = "issue"
	KindEpic      = "epic"
)

// WorkItem defines a standard user story, task, issue or epic of a foreign project.
// Foreign references between items use the external ids.
type WorkItem struct {
	Kind        string   `json:"kind" yaml:"kind"`
	ExternalID  string   `json:"external_id" yaml:"external_id"`
	Ref         int64    `json:"ref" yaml:"ref"` // kept when positive and free
	Subject     string   `json:"subject" yaml:"subject"`
	Description string   `json:"description" yaml:"description"`
	Status      string   `json:"status" yaml:"status"`
	OwnerID     string   `json:"owner_id" yaml:"owner_id"`
	OwnerName   string   `json:"owner_name" yaml:"owner_name"`
	AssigneeID  string   `json:"assignee_id" yaml:"assignee_id"`
	Tags        []string `json:"tags" yaml:"tags"`
	Milestone   string   `json:"milestone" yaml:"milestone"`
	// UserStory is the parent of a task
	UserStory string `json:"user_story" yaml:"user_story"`
	// Epic is the epic a user story is related to
	Epic     string   `json:"epic" yaml:"epic"`
	Points   *float64 `json:"points" yaml:"points"`
	Priority string   `json:"priority" yaml:"priority"`
	Severity string   `json:"severity" yaml:"severity"`
	Type     string   `json:"type" yaml:"type"`
	Color    string   `json:"color" yaml:"color"`

	Created time.Time `json:"created" yaml:"created"`
	Updated time.Time `json:"updated" yaml:"updated"`
}

// HistoryItem is one comment or change log entry of a foreign item, items are replayed in source order
type HistoryItem struct {
	ItemKind       string         `json:"item_kind" yaml:"item_kind"`
	ItemExternalID string         `json:"item_external_id" yaml:"item_external_id"`
	AuthorID       string         `json:"author_id" yaml:"author_id"`
	AuthorName     string         `json:"author_name" yaml:"author_name"`
	Comment        string         `json:"comment" yaml:"comment"`
	Changes        []*FieldChange `json:"changes" yaml:"changes"`
	Created        time.Time      `json:"created" yaml:"created"`
}

// FieldChange is a field transition recorded by the source
type FieldChange struct {
	Field string `json:"field" yaml:"field"`
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
}

// Attachment represents a file of a foreign item
type Attachment struct {
	ItemKind       string    `json:"item_kind" yaml:"item_kind"`
	ItemExternalID string    `json:"item_external_id" yaml:"item_external_id"`
	Name           string    `json:"name" yaml:"name"`
	ContentType    string    `json:"content_type" yaml:"content_type"`
	Description    string    `json:"description" yaml:"description"`
	Size           *int64    `json:"size" yaml:"size"`
	OwnerID        string    `json:"owner_id" yaml:"owner_id"`
	Created        time.Time `json:"created" yaml:"created"`
	DownloadURL    *string   `json:"download_url" yaml:"download_url"`
	// if DownloadURL is nil, the function should be invoked
	DownloadFunc func() (io.ReadCloser, error) `json:"-" yaml:"-"`
}
