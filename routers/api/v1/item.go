// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package v1

import (
	"net/http"
	"strconv"
	"strings"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	watch_model "github.com/taigaio/taiga-back-sub001/models/watch"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
	"github.com/taigaio/taiga-back-sub001/services/convert"
	"github.com/taigaio/taiga-back-sub001/services/mutation"
)

func parseKind(ctx *APIContext) (project_model.ItemKind, bool) {
	kind, ok := project_model.ParseItemKind(ctx.Params("kind"))
	if !ok {
		ctx.BadRequest("kind", "unknown kind %q", ctx.Params("kind"))
	}
	return kind, ok
}

// loadItem loads the item of the URL, the doer must be allowed to view items of its kind
func loadItem(ctx *APIContext) (agile_model.Item, bool) {
	kind, ok := parseKind(ctx)
	if !ok {
		return nil, false
	}
	p, ok := loadProject(ctx)
	if !ok {
		return nil, false
	}
	id := ctx.ParamsInt64("id")
	item, err := agile_model.GetItem(ctx.Req.Context(), kind, id)
	if err == nil && item.GetProjectID() != p.ID {
		err = agile_model.ErrNotExist{Kind: kind, ID: id}
	}
	if err != nil {
		ctx.Error(err)
		return nil, false
	}
	perm := project_model.PermissionName(project_model.ActionView, kind)
	allowed, err := project_model.HasPermission(ctx.Req.Context(), p, ctx.Doer.ID, perm)
	if err != nil {
		ctx.Error(err)
		return nil, false
	}
	if !allowed && p.IsPrivate {
		ctx.Error(agile_model.ErrPermissionDenied{Action: perm})
		return nil, false
	}
	return item, true
}

// expectedVersion reads the version the client edits, an If-Match header wins over the body
func expectedVersion(ctx *APIContext, form *api.MutateItemOption) int64 {
	if h := strings.Trim(ctx.Req.Header.Get("If-Match"), `W/" `); h != "" {
		if v, err := strconv.ParseInt(h, 10, 64); err == nil {
			return v
		}
	}
	return form.Version
}

func (ctx *APIContext) mutationResult(status int, res *mutation.Result) {
	item, err := convert.ToAPIItem(ctx.Req.Context(), res.Entity)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.Resp.Header().Set("ETag", strconv.Quote(strconv.FormatInt(item.Version, 10)))
	ctx.JSON(status, &api.MutationResult{
		Item:          item,
		HistoryEntry:  convert.ToAPIHistoryEntry(res.HistoryEntry),
		Notified:      convert.ToUserIDs(res.NotifySet),
		CascadeWrites: res.CascadeWrites,
	})
}

// GetItem returns an agile item
func GetItem(ctx *APIContext) {
	item, ok := loadItem(ctx)
	if !ok {
		return
	}
	res, err := convert.ToAPIItem(ctx.Req.Context(), item)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.Resp.Header().Set("ETag", strconv.Quote(strconv.FormatInt(res.Version, 10)))
	ctx.JSON(http.StatusOK, res)
}

// CreateItem creates an agile item from the patch of the body
func CreateItem(ctx *APIContext) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}
	var form api.MutateItemOption
	if !ctx.DecodeJSON(&form) {
		return
	}
	res, err := mutation.ApplyMutation(ctx.Req.Context(), &mutation.Request{
		Op:        mutation.OpCreate,
		Kind:      kind,
		ActorID:   ctx.Doer.ID,
		ProjectID: ctx.ParamsInt64("project"),
		Patch:     form.Patch,
		Comment:   form.Comment,
	})
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.mutationResult(http.StatusCreated, res)
}

// EditItem applies the patch of the body onto an agile item
func EditItem(ctx *APIContext) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}
	var form api.MutateItemOption
	if !ctx.DecodeJSON(&form) {
		return
	}
	version := expectedVersion(ctx, &form)
	if version <= 0 {
		ctx.BadRequest("version", "the version being edited is required")
		return
	}
	res, err := mutation.ApplyMutation(ctx.Req.Context(), &mutation.Request{
		Op:              mutation.OpUpdate,
		Kind:            kind,
		ID:              ctx.ParamsInt64("id"),
		ActorID:         ctx.Doer.ID,
		ProjectID:       ctx.ParamsInt64("project"),
		ExpectedVersion: version,
		Patch:           form.Patch,
		Comment:         form.Comment,
	})
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.mutationResult(http.StatusOK, res)
}

// DeleteItem deletes an agile item
func DeleteItem(ctx *APIContext) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}
	_, err := mutation.ApplyMutation(ctx.Req.Context(), &mutation.Request{
		Op:        mutation.OpDelete,
		Kind:      kind,
		ID:        ctx.ParamsInt64("id"),
		ActorID:   ctx.Doer.ID,
		ProjectID: ctx.ParamsInt64("project"),
	})
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetItemHistory returns the history of an agile item, oldest first
func GetItemHistory(ctx *APIContext) {
	item, ok := loadItem(ctx)
	if !ok {
		return
	}
	entries, err := mutation.GetHistory(ctx.Req.Context(), item.ItemKind(), item.GetID())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, convert.ToAPIHistory(entries))
}

// GetWatching returns whether the doer watches an agile item
func GetWatching(ctx *APIContext) {
	item, ok := loadItem(ctx)
	if !ok {
		return
	}
	watching, err := watch_model.IsWatching(ctx.Req.Context(), ctx.Doer.ID, item.ItemKind(), item.GetID())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, api.WatchInfo{Subscribed: watching})
}

func setWatching(ctx *APIContext, watching bool) {
	kind, ok := parseKind(ctx)
	if !ok {
		return
	}
	if err := mutation.SetWatching(ctx.Req.Context(), ctx.Doer.ID, kind, ctx.ParamsInt64("id"), watching); err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, api.WatchInfo{Subscribed: watching})
}

// Watch subscribes the doer to the changes of an agile item
func Watch(ctx *APIContext) {
	setWatching(ctx, true)
}

// Unwatch unsubscribes the doer, they are not subscribed again automatically
func Unwatch(ctx *APIContext) {
	setWatching(ctx, false)
}
