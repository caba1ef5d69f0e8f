// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package v1

import (
	"net/http"
	"strconv"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
	"github.com/taigaio/taiga-back-sub001/services/convert"
	"github.com/taigaio/taiga-back-sub001/services/mutation"
)

// loadProject loads the project of the URL, the doer must be able to see it
func loadProject(ctx *APIContext) (*project_model.Project, bool) {
	p, err := project_model.GetProjectByID(ctx.Req.Context(), ctx.ParamsInt64("project"))
	if err != nil {
		ctx.Error(err)
		return nil, false
	}
	if !p.IsPrivate {
		return p, true
	}
	ok, err := project_model.IsMember(ctx.Req.Context(), p, ctx.Doer.ID)
	if err != nil {
		ctx.Error(err)
		return nil, false
	}
	if !ok {
		// private projects are not revealed
		ctx.Error(project_model.ErrProjectNotExist{ID: p.ID})
		return nil, false
	}
	return p, true
}

// CreateProject creates a project owned by the doer with the default catalogs
func CreateProject(ctx *APIContext) {
	var form api.CreateProjectOption
	if !ctx.DecodeJSON(&form) {
		return
	}
	if form.Name == "" {
		ctx.BadRequest("name", "name is required")
		return
	}
	p := &project_model.Project{
		Name:        form.Name,
		Description: form.Description,
		IsPrivate:   form.IsPrivate,
		OwnerID:     ctx.Doer.ID,
	}
	if err := project_model.InitProject(ctx.Req.Context(), p); err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, convert.ToAPIProject(p))
}

// GetProject returns a project
func GetProject(ctx *APIContext) {
	p, ok := loadProject(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, convert.ToAPIProject(p))
}

// DeleteProject deletes a project with everything it holds
func DeleteProject(ctx *APIContext) {
	if err := mutation.DeleteProject(ctx.Req.Context(), ctx.ParamsInt64("project"), ctx.Doer.ID); err != nil {
		ctx.Error(err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListRoles lists the roles of a project
func ListRoles(ctx *APIContext) {
	p, ok := loadProject(ctx)
	if !ok {
		return
	}
	roles, err := project_model.GetRoles(ctx.Req.Context(), p.ID)
	if err != nil {
		ctx.Error(err)
		return
	}
	res := make([]*api.Role, 0, len(roles))
	for _, r := range roles {
		res = append(res, convert.ToAPIRole(r))
	}
	ctx.JSON(http.StatusOK, res)
}

// AddRole adds a role to a project, a computable role gets points on every user story
func AddRole(ctx *APIContext) {
	var form api.CreateRoleOption
	if !ctx.DecodeJSON(&form) {
		return
	}
	r := &project_model.Role{
		ProjectID:   ctx.ParamsInt64("project"),
		Name:        form.Name,
		Computable:  form.Computable,
		Permissions: form.Permissions,
	}
	if err := mutation.AddRole(ctx.Req.Context(), ctx.Doer.ID, r); err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, convert.ToAPIRole(r))
}

// DeleteRole deletes a role, its members move to the role named by the move_to query parameter
func DeleteRole(ctx *APIContext) {
	moveTo, err := strconv.ParseInt(ctx.Req.URL.Query().Get("move_to"), 10, 64)
	if err != nil || moveTo <= 0 {
		ctx.BadRequest("move_to", "a role to move the members to is required")
		return
	}
	if err := mutation.DeleteRole(ctx.Req.Context(), ctx.Doer.ID, ctx.ParamsInt64("project"), ctx.ParamsInt64("role"), moveTo); err != nil {
		ctx.Error(err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AllocateRef hands out the next ref of a kind, the doer must be allowed to add items of the kind
func AllocateRef(ctx *APIContext) {
	p, ok := loadProject(ctx)
	if !ok {
		return
	}
	kind, ok := project_model.ParseItemKind(ctx.Params("kind"))
	if !ok || !kind.HasRef() {
		ctx.BadRequest("kind", "%q has no ref", ctx.Params("kind"))
		return
	}
	perm := project_model.PermissionName(project_model.ActionAdd, kind)
	allowed, err := project_model.HasPermission(ctx.Req.Context(), p, ctx.Doer.ID, perm)
	if err != nil {
		ctx.Error(err)
		return
	}
	if !allowed {
		ctx.Error(agile_model.ErrPermissionDenied{Action: perm})
		return
	}
	ref, err := mutation.AllocateRef(ctx.Req.Context(), p.ID, kind)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, api.Ref{Kind: string(kind), Ref: ref})
}
