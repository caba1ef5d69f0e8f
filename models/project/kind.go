// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

// ItemKind is the kind of an agile item, it names catalogs, refs, permissions and history keys
type ItemKind string

const (
	KindEpic      ItemKind = "epic"
	KindUserStory ItemKind = "userstory"
	KindTask      ItemKind = "task"
	KindIssue     ItemKind = "issue"
	KindMilestone ItemKind = "milestone"
)

// RefKinds are the kinds carrying a per project ref
var RefKinds = []ItemKind{KindEpic, KindUserStory, KindTask, KindIssue}

// HasRef reports whether items of this kind get a ref
func (k ItemKind) HasRef() bool {
	return k == KindEpic || k == KindUserStory || k == KindTask || k == KindIssue
}

// HasStatus reports whether items of this kind have a status catalog
func (k ItemKind) HasStatus() bool {
	return k.HasRef()
}

// IsValid reports whether the kind is known
func (k ItemKind) IsValid() bool {
	return k.HasRef() || k == KindMilestone
}

// PermissionSlug is the short name used in permission names, for example "add_us"
func (k ItemKind) PermissionSlug() string {
	switch k {
	case KindUserStory:
		return "us"
	default:
		return string(k)
	}
}

// ParseItemKind parses a kind name, the short permission slugs are accepted too
func ParseItemKind(s string) (ItemKind, bool) {
	switch s {
	case "us", "userstory", "user_story":
		return KindUserStory, true
	case "epic", "task", "issue", "milestone":
		return ItemKind(s), true
	}
	return "", false
}
