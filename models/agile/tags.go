// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// GetProjectTags returns the sorted distinct tags used by the work items of the project
func GetProjectTags(ctx context.Context, projectID int64) ([]string, error) {
	var tags []string
	for _, table := range []string{"epic", "user_story", "task", "issue"} {
		var raw []string
		if err := db.GetEngine(ctx).Table(table).Where("project_id=? AND tags IS NOT NULL", projectID).Cols("tags").Find(&raw); err != nil {
			return nil, err
		}
		for _, r := range raw {
			if r == "" || r == "null" {
				continue
			}
			var itemTags []string
			if err := json.Unmarshal([]byte(r), &itemTags); err != nil {
				return nil, err
			}
			tags = append(tags, itemTags...)
		}
	}
	return util.SortedUnique(tags), nil
}
