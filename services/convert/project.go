// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package convert

import (
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
)

// ToAPIProject converts a project to its API format
func ToAPIProject(p *project_model.Project) *api.Project {
	lastRefs := make(map[string]int64, len(project_model.RefKinds))
	for _, kind := range project_model.RefKinds {
		lastRefs[string(kind)] = p.LastRef(kind)
	}
	colors := p.TagsColors
	if colors == nil {
		colors = map[string]string{}
	}
	return &api.Project{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		OwnerID:      p.OwnerID,
		IsPrivate:    p.IsPrivate,
		ImportedFrom: p.ImportedFrom,
		TagsColors:   colors,
		LastRefs:     lastRefs,
		Created:      p.CreatedUnix.AsTime(),
		Updated:      p.UpdatedUnix.AsTime(),
	}
}

// ToAPIRole converts a role to its API format
func ToAPIRole(r *project_model.Role) *api.Role {
	return &api.Role{
		ID:          r.ID,
		Name:        r.Name,
		Slug:        r.Slug,
		Order:       r.SortOrder,
		Computable:  r.Computable,
		Permissions: r.Permissions,
	}
}
