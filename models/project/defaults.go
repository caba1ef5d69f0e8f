// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

type defaultStatus struct {
	name     string
	color    string
	closed   bool
	archived bool
}

var defaultStatuses = map[ItemKind][]defaultStatus{
	KindUserStory: {
		{name: "New", color: "#999999"},
		{name: "Ready", color: "#ff8a84"},
		{name: "In progress", color: "#ff9900"},
		{name: "Ready for test", color: "#fcc000"},
		{name: "Done", color: "#669900", closed: true},
		{name: "Archived", color: "#5c3566", closed: true, archived: true},
	},
	KindTask: {
		{name: "New", color: "#999999"},
		{name: "In progress", color: "#ff9900"},
		{name: "Ready for test", color: "#ffcc00"},
		{name: "Closed", color: "#669900", closed: true},
		{name: "Needs Info", color: "#999999"},
	},
	KindIssue: {
		{name: "New", color: "#8C2318"},
		{name: "In progress", color: "#5E8C6A"},
		{name: "Ready for test", color: "#88A65E"},
		{name: "Closed", color: "#BFB35A", closed: true},
		{name: "Needs Info", color: "#89BAB4"},
		{name: "Rejected", color: "#CC0000", closed: true},
		{name: "Postponed", color: "#666666"},
	},
	KindEpic: {
		{name: "New", color: "#999999"},
		{name: "Ready", color: "#ff8a84"},
		{name: "In progress", color: "#ff9900"},
		{name: "Ready for test", color: "#fcc000"},
		{name: "Done", color: "#669900", closed: true},
	},
}

var defaultPoints = []struct {
	name  string
	value *float64
}{
	{"?", nil},
	{"0", util.ToPointer(0.0)},
	{"1/2", util.ToPointer(0.5)},
	{"1", util.ToPointer(1.0)},
	{"2", util.ToPointer(2.0)},
	{"3", util.ToPointer(3.0)},
	{"5", util.ToPointer(5.0)},
	{"8", util.ToPointer(8.0)},
	{"10", util.ToPointer(10.0)},
	{"13", util.ToPointer(13.0)},
	{"20", util.ToPointer(20.0)},
	{"40", util.ToPointer(40.0)},
}

var defaultRoles = []struct {
	name       string
	computable bool
	viewOnly   bool
}{
	{name: "UX", computable: true},
	{name: "Design", computable: true},
	{name: "Front", computable: true},
	{name: "Back", computable: true},
	{name: "Product Owner"},
	{name: "Stakeholder", viewOnly: true},
}

func viewPermissions() []string {
	perms := make([]string, 0, 5)
	for _, kind := range []ItemKind{KindEpic, KindUserStory, KindTask, KindIssue, KindMilestone} {
		perms = append(perms, PermissionName(ActionView, kind))
	}
	return perms
}

// CreateDefaultCatalogs fills an empty project with the scrum template:
// statuses of every kind, priorities, severities, issue types, the points scale and the roles.
// The owner becomes an admin member holding the first role.
func CreateDefaultCatalogs(ctx context.Context, p *Project) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		for _, kind := range []ItemKind{KindEpic, KindUserStory, KindTask, KindIssue} {
			for i, s := range defaultStatuses[kind] {
				if err := db.Insert(ctx, &Status{
					ProjectID:  p.ID,
					Kind:       kind,
					Name:       s.name,
					Slug:       util.Slugify(s.name),
					SortOrder:  int64(i + 1),
					IsClosed:   s.closed,
					IsArchived: s.archived,
					Color:      s.color,
				}); err != nil {
					return err
				}
			}
		}

		for i, name := range []string{"Low", "Normal", "High"} {
			if err := db.Insert(ctx, &Priority{ProjectID: p.ID, Name: name, SortOrder: int64(i + 1)}); err != nil {
				return err
			}
		}
		for i, name := range []string{"Wishlist", "Minor", "Normal", "Important", "Critical"} {
			if err := db.Insert(ctx, &Severity{ProjectID: p.ID, Name: name, SortOrder: int64(i + 1)}); err != nil {
				return err
			}
		}
		for i, name := range []string{"Bug", "Question", "Enhancement"} {
			if err := db.Insert(ctx, &IssueType{ProjectID: p.ID, Name: name, SortOrder: int64(i + 1)}); err != nil {
				return err
			}
		}
		for i, pt := range defaultPoints {
			if err := db.Insert(ctx, &Points{ProjectID: p.ID, Name: pt.name, Value: pt.value, SortOrder: int64(i + 1)}); err != nil {
				return err
			}
		}

		var ownerRoleID int64
		for i, r := range defaultRoles {
			role := &Role{
				ProjectID:   p.ID,
				Name:        r.name,
				Slug:        util.Slugify(r.name),
				SortOrder:   int64(i + 1),
				Computable:  r.computable,
				Permissions: util.Iif(r.viewOnly, viewPermissions(), AllPermissions()),
			}
			if err := db.Insert(ctx, role); err != nil {
				return err
			}
			if ownerRoleID == 0 {
				ownerRoleID = role.ID
			}
		}
		_, err := AddMember(ctx, p.ID, p.OwnerID, ownerRoleID, true)
		return err
	})
}

// InitProject creates the project together with its default catalogs
func InitProject(ctx context.Context, p *Project) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		if err := CreateProject(ctx, p); err != nil {
			return err
		}
		return CreateDefaultCatalogs(ctx, p)
	})
}
