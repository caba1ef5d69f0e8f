// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// Freeze returns the state of the item as stored in history, a nil item freezes to nil.
// Values go through JSON so that a frozen state compares equal to a stored one.
func Freeze(ctx context.Context, item agile_model.Item) (history_model.Snapshot, error) {
	if item == nil {
		return nil, nil
	}
	var s history_model.Snapshot
	switch it := item.(type) {
	case *agile_model.UserStory:
		points, err := agile_model.GetRolePoints(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		frozenPoints := make(map[string]int64, len(points))
		for roleID, pointsID := range points {
			frozenPoints[strconv.FormatInt(roleID, 10)] = pointsID
		}
		s = history_model.Snapshot{
			"ref":           it.Ref,
			"subject":       it.Subject,
			"description":   it.Description,
			"status":        it.StatusID,
			"milestone":     it.MilestoneID,
			"assigned_to":   it.AssignedToID,
			"owner":         it.OwnerID,
			"tags":          frozenTags(it.Tags),
			"backlog_order": it.BacklogOrder,
			"is_closed":     it.IsClosed,
			"finish_date":   int64(it.FinishDate),
			"points":        frozenPoints,
		}
	case *agile_model.Task:
		s = history_model.Snapshot{
			"ref":             it.Ref,
			"subject":         it.Subject,
			"description":     it.Description,
			"status":          it.StatusID,
			"user_story":      it.UserStoryID,
			"milestone":       it.MilestoneID,
			"assigned_to":     it.AssignedToID,
			"owner":           it.OwnerID,
			"tags":            frozenTags(it.Tags),
			"taskboard_order": it.TaskboardOrder,
			"is_iocaine":      it.IsIocaine,
			"finished_date":   int64(it.FinishedDate),
		}
	case *agile_model.Issue:
		s = history_model.Snapshot{
			"ref":           it.Ref,
			"subject":       it.Subject,
			"description":   it.Description,
			"status":        it.StatusID,
			"severity":      it.SeverityID,
			"priority":      it.PriorityID,
			"type":          it.TypeID,
			"milestone":     it.MilestoneID,
			"assigned_to":   it.AssignedToID,
			"owner":         it.OwnerID,
			"tags":          frozenTags(it.Tags),
			"finished_date": int64(it.FinishedDate),
		}
	case *agile_model.Epic:
		s = history_model.Snapshot{
			"ref":         it.Ref,
			"subject":     it.Subject,
			"description": it.Description,
			"status":      it.StatusID,
			"assigned_to": it.AssignedToID,
			"owner":       it.OwnerID,
			"tags":        frozenTags(it.Tags),
			"color":       it.Color,
			"epics_order": it.EpicsOrder,
		}
	case *agile_model.Milestone:
		s = history_model.Snapshot{
			"name":             it.Name,
			"slug":             it.Slug,
			"owner":            it.OwnerID,
			"estimated_start":  int64(it.EstimatedStart),
			"estimated_finish": int64(it.EstimatedFinish),
			"closed":           it.Closed,
			"disponibility":    it.Disponibility,
			"sort_order":       it.SortOrder,
		}
	default:
		return nil, fmt.Errorf("cannot freeze %T", item)
	}
	return normalize(s)
}

func frozenTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	return util.SortedUnique(tags)
}

func normalize(s history_model.Snapshot) (history_model.Snapshot, error) {
	bs, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out history_model.Snapshot
	return out, json.Unmarshal(bs, &out)
}

// Diff compares two frozen states. A nil pre records a creation and a nil post a deletion,
// every field is then reported against nil. Tags report [removed, added] and points only the changed roles.
func Diff(pre, post history_model.Snapshot) history_model.Diff {
	diff := history_model.Diff{}
	switch {
	case pre == nil && post == nil:
		return diff
	case pre == nil:
		for field, v := range post {
			diff[field] = history_model.Change{nil, v}
		}
		return diff
	case post == nil:
		for field, v := range pre {
			diff[field] = history_model.Change{v, nil}
		}
		return diff
	}

	fields := slices.Sorted(maps.Keys(post))
	for field := range pre {
		if _, ok := post[field]; !ok {
			fields = append(fields, field)
		}
	}
	for _, field := range fields {
		oldValue, newValue := pre[field], post[field]
		switch field {
		case "tags":
			removed, added := util.SetDiff(toStrings(oldValue), toStrings(newValue))
			if len(removed)+len(added) > 0 {
				diff[field] = history_model.Change{removed, added}
			}
		case "points":
			oldPoints, newPoints := toMap(oldValue), toMap(newValue)
			oldChanged, newChanged := map[string]any{}, map[string]any{}
			for role, v := range newPoints {
				if !reflect.DeepEqual(oldPoints[role], v) {
					oldChanged[role], newChanged[role] = oldPoints[role], v
				}
			}
			for role, v := range oldPoints {
				if _, ok := newPoints[role]; !ok {
					oldChanged[role], newChanged[role] = v, nil
				}
			}
			if len(newChanged) > 0 {
				diff[field] = history_model.Change{oldChanged, newChanged}
			}
		default:
			if !reflect.DeepEqual(oldValue, newValue) {
				diff[field] = history_model.Change{oldValue, newValue}
			}
		}
	}
	return diff
}

// Apply moves a frozen state forward by a change diff, it is the inverse of Diff
func Apply(state history_model.Snapshot, diff history_model.Diff) history_model.Snapshot {
	next := maps.Clone(state)
	if next == nil {
		next = history_model.Snapshot{}
	}
	for field, change := range diff {
		switch field {
		case "tags":
			tags := toStrings(next[field])
			removed, added := toStrings(change[0]), toStrings(change[1])
			tags = slices.DeleteFunc(tags, func(tag string) bool { return slices.Contains(removed, tag) })
			next[field] = toAny(util.SortedUnique(append(tags, added...)))
		case "points":
			points := maps.Clone(toMap(next[field]))
			if points == nil {
				points = map[string]any{}
			}
			for role, v := range toMap(change[1]) {
				if v == nil {
					delete(points, role)
				} else {
					points[role] = v
				}
			}
			next[field] = points
		default:
			if change[1] == nil {
				delete(next, field)
			} else {
				next[field] = change[1]
			}
		}
	}
	return next
}

func toStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return slices.Clone(vv)
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func toAny(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func toMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}
