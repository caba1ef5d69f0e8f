// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package occ

import (
	"context"
	"maps"
	"slices"
	"strings"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
)

// readonlyFields are derived or identifying fields a patch may never name
var readonlyFields = map[string]struct{}{
	"id":            {},
	"ref":           {},
	"version":       {},
	"project":       {},
	"owner":         {},
	"slug":          {},
	"is_closed":     {},
	"finish_date":   {},
	"finished_date": {},
	"created_at":    {},
	"created_date":  {},
	"modified_at":   {},
	"modified_date": {},
}

// FieldName normalizes a patch key to the field name used by diffs, "status_id" becomes "status"
func FieldName(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key != "id" {
		key = strings.TrimSuffix(key, "_id")
	}
	return key
}

// IsReadonly reports whether the field is derived or identifying
func IsReadonly(field string) bool {
	_, ok := readonlyFields[FieldName(field)]
	return ok
}

// NormalizePatch returns the patch keyed by field names, a patch naming a read-only field is refused
func NormalizePatch(patch map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(patch))
	for _, key := range slices.Sorted(maps.Keys(patch)) {
		field := FieldName(key)
		if IsReadonly(field) {
			return nil, agile_model.ErrReadonlyField{Field: key}
		}
		if _, dup := normalized[field]; dup {
			return nil, agile_model.NewErrValidation(field, "field is given twice")
		}
		normalized[field] = patch[key]
	}
	return normalized, nil
}

// ChangedFieldsSince returns the fields changed by the versions in (expected, current] of the item.
// complete is false when the history cannot tell, because entries are missing or too old.
func ChangedFieldsSince(ctx context.Context, item agile_model.Item, expected int64) (fields []string, complete bool, err error) {
	current := item.GetVersion()
	if expected <= 0 || expected > current {
		return nil, false, nil
	}
	if current-expected > int64(setting.History.OCCHistoryTail) {
		return nil, false, nil
	}
	entries, err := history_model.GetEntriesInVersionRange(ctx, history_model.Key(item.ItemKind(), item.GetID()), expected, current)
	if err != nil {
		return nil, false, err
	}
	seen := make(map[int64]bool, current-expected)
	changed := map[string]struct{}{}
	for _, e := range entries {
		seen[e.Version] = true
		for field := range e.Diff {
			changed[field] = struct{}{}
		}
	}
	for v := expected + 1; v <= current; v++ {
		if !seen[v] {
			return nil, false, nil
		}
	}
	fields = make([]string, 0, len(changed))
	for field := range changed {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields, true, nil
}

// Check accepts a normalized patch made against the expected version of the item.
// A patch made against an older version passes when none of its fields changed since.
func Check(ctx context.Context, item agile_model.Item, expected int64, patch map[string]any) error {
	if expected == item.GetVersion() {
		return nil
	}
	kind := string(item.ItemKind())
	changed, complete, err := ChangedFieldsSince(ctx, item, expected)
	if err != nil {
		return err
	}

	conflicts := make([]string, 0, len(patch))
	for _, field := range slices.Sorted(maps.Keys(patch)) {
		if !complete || slices.Contains(changed, field) {
			conflicts = append(conflicts, field)
		}
	}
	if len(conflicts) == 0 {
		metrics.OCCMerges.WithLabelValues(kind).Inc()
		log.Debug("occ: merged patch of %s %d made at version %d onto version %d", kind, item.GetID(), expected, item.GetVersion())
		return nil
	}
	metrics.OCCConflicts.WithLabelValues(kind).Inc()
	log.Debug("occ: refused patch of %s %d made at version %d, current %d, conflicts %v", kind, item.GetID(), expected, item.GetVersion(), conflicts)
	return agile_model.ErrStaleObject{Kind: item.ItemKind(), ID: item.GetID(), Fields: conflicts}
}
