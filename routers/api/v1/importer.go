// Copyright 2020 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package v1

import (
	"net/http"

	importer_model "github.com/taigaio/taiga-back-sub001/models/importer"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
	"github.com/taigaio/taiga-back-sub001/modules/util"
	"github.com/taigaio/taiga-back-sub001/services/convert"
	"github.com/taigaio/taiga-back-sub001/services/task"
)

// ImportProject queues the import of a project from JIRA or Pivotal Tracker, the doer owns the result
func ImportProject(ctx *APIContext) {
	var form api.ImportProjectOption
	if !ctx.DecodeJSON(&form) {
		return
	}
	switch form.Source {
	case base.SourceJira, base.SourcePivotal:
	default:
		// dumps are read from the server disk, they are imported with the command line only
		ctx.BadRequest("source", "unsupported source %q", form.Source)
		return
	}
	if form.ProjectKey == "" {
		ctx.BadRequest("project_key", "project_key is required")
		return
	}

	job, err := task.SubmitImport(ctx.Req.Context(), ctx.Doer.ID, base.ImportOptions{
		Source:       form.Source,
		ProjectKey:   form.ProjectKey,
		BaseURL:      form.BaseURL,
		AuthToken:    form.AuthToken,
		AuthUsername: form.AuthUsername,
		AuthPassword: form.AuthPassword,
		OwnerID:      ctx.Doer.ID,
		ProjectName:  form.ProjectName,
		IsPrivate:    form.IsPrivate,
		UserBindings: form.UserBindings,
		Attachments:  form.Attachments,
		History:      form.History,
	})
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusAccepted, convert.ToAPIImportJob(job))
}

// GetImportJob returns the state of an import of the doer
func GetImportJob(ctx *APIContext) {
	job, err := importer_model.GetJobByUUID(ctx.Req.Context(), ctx.Params("uuid"))
	if err != nil {
		ctx.Error(err)
		return
	}
	if job.OwnerID != ctx.Doer.ID {
		ctx.Error(util.NewNotExistErrorf("import job does not exist [uuid: %s]", job.UUID))
		return
	}
	ctx.JSON(http.StatusOK, convert.ToAPIImportJob(job))
}
