// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package convert

import (
	"context"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	importer_model "github.com/taigaio/taiga-back-sub001/models/importer"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	api "github.com/taigaio/taiga-back-sub001/modules/structs"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
)

// ToAPIItem converts an agile item to its API format, the fields are the ones recorded in history
func ToAPIItem(ctx context.Context, item agile_model.Item) (*api.Item, error) {
	fields, err := history_service.Freeze(ctx, item)
	if err != nil {
		return nil, err
	}
	return &api.Item{
		Kind:      string(item.ItemKind()),
		ID:        item.GetID(),
		ProjectID: item.GetProjectID(),
		Version:   item.GetVersion(),
		Fields:    fields,
		Created:   item.GetCreatedUnix().AsTime(),
	}, nil
}

// ToAPIHistoryEntry converts a history entry to its API format
func ToAPIHistoryEntry(e *history_model.Entry) *api.HistoryEntry {
	if e == nil {
		return nil
	}
	diff := make(map[string][2]any, len(e.Diff))
	for field, change := range e.Diff {
		diff[field] = change
	}
	var imported map[string][2]any
	if len(e.ImportedDiff) > 0 {
		imported = make(map[string][2]any, len(e.ImportedDiff))
		for field, change := range e.ImportedDiff {
			imported[field] = change
		}
	}
	return &api.HistoryEntry{
		ID:              e.ID,
		Type:            e.Type.String(),
		UserID:          e.UserID,
		UserName:        e.UserName,
		Diff:            diff,
		Values:          e.Values,
		ImportedDiff:    imported,
		Comment:         e.Comment,
		DescriptionDiff: e.DescriptionDiff,
		Version:         e.Version,
		Created:         e.CreatedUnix.AsTime(),
	}
}

// ToAPIHistory converts the history of an item
func ToAPIHistory(entries []*history_model.Entry) []*api.HistoryEntry {
	res := make([]*api.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, ToAPIHistoryEntry(e))
	}
	return res
}

// ToUserIDs returns the ids of users
func ToUserIDs(users []*user_model.User) []int64 {
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

// ToAPIImportJob converts an import job to its API format
func ToAPIImportJob(job *importer_model.Job) *api.ImportJob {
	return &api.ImportJob{
		UUID:      job.UUID,
		Source:    job.Source,
		Status:    job.Status.String(),
		Progress:  job.Progress,
		Error:     job.Error,
		ProjectID: job.ProjectID,
		Created:   job.CreatedUnix.AsTime(),
		Finished:  job.FinishedUnix.AsTimePtr(),
	}
}
