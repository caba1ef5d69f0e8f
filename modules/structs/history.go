// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package structs

import "time"

// HistoryEntry represents one audit record of an item
type HistoryEntry struct {
	ID              int64                        `json:"id"`
	Type            string                       `json:"type"`
	UserID          int64                        `json:"user_id"`
	UserName        string                       `json:"user_name"`
	Diff            map[string][2]any            `json:"diff"`
	Values          map[string]map[string]string `json:"values,omitempty"`
	ImportedDiff    map[string][2]any            `json:"imported_diff,omitempty"`
	Comment         string                       `json:"comment,omitempty"`
	DescriptionDiff string                       `json:"description_diff,omitempty"`
	Version         int64                        `json:"version"`
	Created         time.Time                    `json:"created_at"`
}
