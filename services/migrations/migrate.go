// Copyright 2019 The Gitea Authors. All rights reserved.
// Copyright 2018 Jonas Franz. All rights reserved.
// SPDX-License-Identifier: MIT

package migrations

import (
	"context"
	"fmt"
	"strconv"

	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/metrics"
	base "github.com/taigaio/taiga-back-sub001/modules/migration"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// Messenger receives the progress of an import in percent
type Messenger func(pct int)

// factories is a list of import source providers
var factories []base.DownloaderFactory

// RegisterDownloaderFactory registers a downloader factory
func RegisterDownloaderFactory(factory base.DownloaderFactory) {
	factories = append(factories, factory)
}

func newDownloader(ctx context.Context, opts base.ImportOptions) (base.Downloader, error) {
	for _, factory := range factories {
		if factory.Source() != opts.Source {
			continue
		}
		downloader, err := factory.New(ctx, opts)
		if err != nil {
			return nil, err
		}
		if setting.Importer.RetryTimes > 1 {
			return base.NewRetryDownloader(downloader, setting.Importer.RetryTimes, setting.Importer.RetryDelay), nil
		}
		return downloader, nil
	}
	return nil, util.NewInvalidArgumentErrorf("unknown import source %q", opts.Source)
}

// ImportProject imports a foreign project for doer. An entity that cannot be imported is logged
// and skipped, an import failing as a whole leaves nothing behind.
func ImportProject(ctx context.Context, doer *user_model.User, opts base.ImportOptions, messenger Messenger) (*project_model.Project, error) {
	if messenger == nil {
		messenger = func(int) {}
	}
	if opts.OwnerID == 0 {
		opts.OwnerID = doer.ID
	}
	downloader, err := newDownloader(ctx, opts)
	if err != nil {
		return nil, err
	}
	uploader := NewTaigaLocalUploader(ctx, doer, opts)
	defer uploader.Close()

	if err := importProject(ctx, downloader, uploader, opts, messenger); err != nil {
		if err1 := uploader.Rollback(); err1 != nil {
			log.Error("rollback failed: %v", err1)
		}
		return nil, err
	}
	return uploader.Project(), nil
}

// importProject runs the steps of an import in order: project, users, statuses, milestones,
// work items with their history and attachments, then the reconciliation.
// Steps a source does not support are skipped.
func importProject(ctx context.Context, downloader base.Downloader, uploader base.Uploader, opts base.ImportOptions, messenger Messenger) error {
	log.Trace("fetching project information")
	project, err := downloader.GetProject(ctx)
	if err != nil {
		return err
	}
	messenger(5)
	if err := uploader.CreateProject(project, opts); err != nil {
		return err
	}

	log.Trace("importing users")
	if users, err := downloader.GetUsers(ctx); err != nil {
		if err := skipStep(ctx, opts, "user", err); err != nil {
			return err
		}
	} else if err := uploader.CreateUsers(users...); err != nil {
		return err
	}

	log.Trace("importing statuses")
	if statuses, err := downloader.GetStatuses(ctx); err != nil {
		if err := skipStep(ctx, opts, "status", err); err != nil {
			return err
		}
	} else if err := uploader.CreateStatuses(statuses...); err != nil {
		return err
	}

	log.Trace("importing milestones")
	milestones, err := downloader.GetMilestones(ctx)
	if err != nil {
		if err := skipStep(ctx, opts, "milestone", err); err != nil {
			return err
		}
	}
	msBatchSize := uploader.MaxBatchInsertSize("milestone")
	for len(milestones) > 0 {
		if len(milestones) < msBatchSize {
			msBatchSize = len(milestones)
		}
		if err := uploader.CreateMilestones(milestones[:msBatchSize]...); err != nil {
			return err
		}
		milestones = milestones[msBatchSize:]
	}
	messenger(15)

	log.Trace("importing work items")
	perPage := min(uploader.MaxBatchInsertSize("workitem"), setting.Importer.BatchSize)
	pct := 15
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		items, isEnd, err := downloader.GetWorkItems(ctx, page, perPage)
		if err != nil {
			if base.IsErrNotSupported(err) {
				log.Warn("importing work items is not supported, ignored")
				break
			}
			return err
		}
		if err := uploader.CreateWorkItems(items...); err != nil {
			return err
		}
		for _, item := range items {
			importItemDetails(ctx, downloader, uploader, opts, item)
		}
		// the total is unknown, every page closes half of the remaining gap to 85
		pct += (85 - pct) / 2
		messenger(pct)
		if isEnd {
			break
		}
	}
	messenger(85)

	log.Trace("reconciling the imported project")
	if err := uploader.Finish(); err != nil {
		return err
	}
	messenger(100)
	return nil
}

// skipStep logs a step the source could not deliver, only a cancelled import stops
func skipStep(ctx context.Context, opts base.ImportOptions, kind string, err error) error {
	if base.IsErrNotSupported(err) {
		log.Warn("importing %s is not supported by %s, ignored", kind, opts.Source)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	metrics.ImportFailures.WithLabelValues(opts.Source, kind).Inc()
	log.Warn("importing %s from %s failed, skipped: %v", kind, opts.Source, err)
	return nil
}

// importItemDetails replays the history and files of an item, failures only skip the entity
func importItemDetails(ctx context.Context, downloader base.Downloader, uploader base.Uploader, opts base.ImportOptions, item *base.WorkItem) {
	skip := func(kind string, err error) {
		if !base.IsErrNotSupported(err) {
			_ = skipStep(ctx, opts, kind, fmt.Errorf("%s %q: %w", item.Kind, item.ExternalID, err))
		}
	}
	if opts.History {
		if history, err := downloader.GetHistory(ctx, item); err != nil {
			skip("history", err)
		} else if err := uploader.CreateHistory(history...); err != nil {
			skip("history", err)
		}
	}
	if opts.Attachments {
		attachments, err := downloader.GetAttachments(ctx, item)
		if err != nil {
			skip("attachment", err)
			return
		}
		batchSize := uploader.MaxBatchInsertSize("attachment")
		for len(attachments) > 0 {
			n := min(batchSize, len(attachments))
			if err := uploader.CreateAttachments(attachments[:n]...); err != nil {
				skip("attachment", err)
			}
			attachments = attachments[n:]
		}
	}
}

// OptionsToMap flattens the options stored with an import job, credentials are left out
func OptionsToMap(opts base.ImportOptions) map[string]string {
	m := map[string]string{
		"source":       opts.Source,
		"project_key":  opts.ProjectKey,
		"base_url":     opts.BaseURL,
		"file_path":    opts.FilePath,
		"owner_id":     strconv.FormatInt(opts.OwnerID, 10),
		"project_name": opts.ProjectName,
		"is_private":   strconv.FormatBool(opts.IsPrivate),
		"attachments":  strconv.FormatBool(opts.Attachments),
		"history":      strconv.FormatBool(opts.History),
	}
	if len(opts.UserBindings) > 0 {
		bs, _ := json.Marshal(opts.UserBindings)
		m["user_bindings"] = string(bs)
	}
	return m
}

// OptionsFromMap restores the options of an import job
func OptionsFromMap(m map[string]string) (base.ImportOptions, error) {
	opts := base.ImportOptions{
		Source:      m["source"],
		ProjectKey:  m["project_key"],
		BaseURL:     m["base_url"],
		FilePath:    m["file_path"],
		ProjectName: m["project_name"],
		IsPrivate:   m["is_private"] == "true",
		Attachments: m["attachments"] == "true",
		History:     m["history"] == "true",
	}
	if v := m["owner_id"]; v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid owner id %q: %w", v, err)
		}
		opts.OwnerID = id
	}
	if v := m["user_bindings"]; v != "" {
		if err := json.Unmarshal([]byte(v), &opts.UserBindings); err != nil {
			return opts, fmt.Errorf("invalid user bindings: %w", err)
		}
	}
	return opts, nil
}
