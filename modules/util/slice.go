// Copyright 2022 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package util

import (
	"cmp"
	"slices"
	"strings"
)

// RemoveIDFromList removes the given ID from the slice, if found.
// It does not preserve order, and assumes the ID is unique.
func RemoveIDFromList(list []int64, id int64) ([]int64, bool) {
	n := len(list) - 1
	for i, item := range list {
		if item == id {
			list[i] = list[n]
			return list[:n], true
		}
	}
	return list, false
}

// SliceRemoveAll removes all the target elements from the slice.
func SliceRemoveAll[T comparable](slice []T, target T) []T {
	return slices.DeleteFunc(slice, func(t T) bool { return t == target })
}

// Sorted returns a sorted copy of the slice
func Sorted[T cmp.Ordered](values []T) []T {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}

// SortedUnique returns the sorted distinct values of the slice
func SortedUnique[T cmp.Ordered](values []T) []T {
	return slices.Compact(Sorted(values))
}

// NormalizeTags lower-cases, trims and de-duplicates tags keeping first-seen order.
// Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SetDiff returns the elements removed from old and added in new, both sorted.
func SetDiff[T cmp.Ordered](old, new []T) (removed, added []T) {
	oldSet := make(map[T]struct{}, len(old))
	for _, v := range old {
		oldSet[v] = struct{}{}
	}
	newSet := make(map[T]struct{}, len(new))
	for _, v := range new {
		newSet[v] = struct{}{}
		if _, ok := oldSet[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range old {
		if _, ok := newSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	return SortedUnique(removed), SortedUnique(added)
}
