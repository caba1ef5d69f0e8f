// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package doctor

import (
	"context"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/log"
)

// countStaleRefCounters counts the counters lagging behind a ref in use, or the project row mirror lagging behind its counter
func countStaleRefCounters(ctx context.Context, p *project_model.Project) (int, error) {
	stale := 0
	for _, kind := range project_model.RefKinds {
		maxRef, err := agile_model.GetMaxRef(ctx, p.ID, kind)
		if err != nil {
			return 0, err
		}
		counter, err := db.GetMaxResourceIndex(ctx, p.ID, string(kind))
		if err != nil {
			return 0, err
		}
		if counter < maxRef || p.LastRef(kind) < max(counter, maxRef) {
			log.Trace("doctor: project %d %s counter %d mirror %d max ref %d", p.ID, kind, counter, p.LastRef(kind), maxRef)
			stale++
		}
	}
	return stale, nil
}

func checkRefCounters(ctx context.Context, logger log.Logger, autofix bool) error {
	ids, err := project_model.GetProjectIDs(ctx)
	if err != nil {
		return err
	}
	count, err := inspect(ctx, autofix, func(ctx context.Context) (int, error) {
		total := 0
		for _, id := range ids {
			p, err := project_model.GetProjectByID(ctx, id)
			if err != nil {
				return 0, err
			}
			stale, err := countStaleRefCounters(ctx, p)
			if err != nil {
				return 0, err
			}
			if stale == 0 {
				continue
			}
			total += stale
			if err := agile_model.RebuildRefCounters(ctx, id); err != nil {
				return 0, err
			}
		}
		return total, nil
	})
	if err != nil {
		return err
	}
	return report(logger, autofix, count, "stale ref counters")
}

func init() {
	Register(&Check{
		Title:     "Check ref counters are ahead of the refs in use",
		Name:      "ref-counters",
		IsDefault: true,
		Run:       checkRefCounters,
		Priority:  1,
	})
}
