// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"fmt"
	"strconv"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/cache"
)

// nameLoader renders the display names of ids of one foreign key target
type nameLoader func(ctx context.Context, ids []int64) (map[int64]string, error)

var fkLoaders = map[string]nameLoader{
	"status":      statusNames,
	"milestone":   milestoneNames,
	"user_story":  userStoryNames,
	"assigned_to": userNames,
	"owner":       userNames,
	"severity":    project_model.GetCatalogNames[project_model.Severity],
	"priority":    project_model.GetCatalogNames[project_model.Priority],
	"type":        project_model.GetCatalogNames[project_model.IssueType],
}

func statusNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	statuses, err := project_model.GetStatusesMapByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(statuses))
	for id, s := range statuses {
		names[id] = s.Name
	}
	return names, nil
}

func milestoneNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		m, err := agile_model.GetMilestoneByID(ctx, id)
		if agile_model.IsErrNotExist(err) {
			continue
		} else if err != nil {
			return nil, err
		}
		names[id] = m.Name
	}
	return names, nil
}

func userStoryNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	stories, err := agile_model.GetUserStoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(stories))
	for id, us := range stories {
		names[id] = fmt.Sprintf("#%d %s", us.Ref, us.Subject)
	}
	return names, nil
}

func userNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	users, err := user_model.GetUsersMapByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for id, u := range users {
		names[id] = u.DisplayName()
	}
	return names, nil
}

// renderValues resolves the display names of the ids named by the foreign key fields of the diff
func renderValues(ctx context.Context, diff history_model.Diff) (history_model.Values, error) {
	values := history_model.Values{}
	for field, change := range diff {
		if field == "points" {
			if err := renderPoints(ctx, change, values); err != nil {
				return nil, err
			}
			continue
		}
		load, ok := fkLoaders[field]
		if !ok {
			continue
		}
		ids := make([]int64, 0, 2)
		for _, v := range change {
			if id := toID(v); id > 0 {
				ids = append(ids, id)
			}
		}
		names, err := cachedNames(ctx, field, ids, load)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			values[field] = names
		}
	}
	return values, nil
}

func renderPoints(ctx context.Context, change history_model.Change, values history_model.Values) error {
	roleIDs, pointsIDs := make([]int64, 0, 4), make([]int64, 0, 4)
	for _, side := range change {
		for role, v := range toMap(side) {
			if id, err := strconv.ParseInt(role, 10, 64); err == nil {
				roleIDs = append(roleIDs, id)
			}
			if id := toID(v); id > 0 {
				pointsIDs = append(pointsIDs, id)
			}
		}
	}
	roles, err := cachedNames(ctx, "role", roleIDs, project_model.GetRoleNames)
	if err != nil {
		return err
	}
	points, err := cachedNames(ctx, "points", pointsIDs, project_model.GetCatalogNames[project_model.Points])
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		values["roles"] = roles
	}
	if len(points) > 0 {
		values["points"] = points
	}
	return nil
}

// cachedNames loads the names missing from the display name cache in one call
func cachedNames(ctx context.Context, target string, ids []int64, load nameLoader) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		key := strconv.FormatInt(id, 10)
		if cache.DisplayNames != nil {
			if name, ok := cache.DisplayNames.Get(target + ":" + key); ok {
				names[key] = name
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names, nil
	}
	loaded, err := load(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, name := range loaded {
		key := strconv.FormatInt(id, 10)
		names[key] = name
		if cache.DisplayNames != nil {
			cache.DisplayNames.Put(target+":"+key, name)
		}
	}
	return names, nil
}

// ForgetName drops a cached display name after a rename
func ForgetName(target string, id int64) {
	if cache.DisplayNames != nil {
		cache.DisplayNames.Remove(target + ":" + strconv.FormatInt(id, 10))
	}
}

func toID(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
