// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package structs

import "time"

// Item represents an agile item, Fields holds its state keyed by field name
type Item struct {
	Kind      string         `json:"kind"`
	ID        int64          `json:"id"`
	ProjectID int64          `json:"project_id"`
	Version   int64          `json:"version"`
	Fields    map[string]any `json:"fields"`
	Created   time.Time      `json:"created_at"`
}

// MutateItemOption is the body of a create or an update of an agile item.
// Version is the version the client read, it is required on update.
type MutateItemOption struct {
	Version int64          `json:"version"`
	Patch   map[string]any `json:"patch"`
	Comment string         `json:"comment"`
}

// MutationResult is the outcome of a committed mutation
type MutationResult struct {
	Item          *Item         `json:"item"`
	HistoryEntry  *HistoryEntry `json:"history_entry,omitempty"`
	Notified      []int64       `json:"notified"`
	CascadeWrites int           `json:"cascade_writes"`
}

// WatchInfo represents the watch state of an item for the signed user
type WatchInfo struct {
	Subscribed bool `json:"subscribed"`
}

// APIError is the body of every failed request
type APIError struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}
