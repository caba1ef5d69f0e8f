// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package doctor

import (
	"context"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/services/cascade"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
)

// ActorName signs the history entries of the repairs
const ActorName = "doctor"

func newRepairBatch(projectID int64) *cascade.Batch {
	batch := cascade.NewBatch(projectID, nil)
	batch.Recorder = func(ctx context.Context, pre, post agile_model.Item) error {
		_, err := history_service.Record(ctx, pre, post, history_service.RecordOptions{
			Actor:   history_service.Actor{Name: ActorName},
			Comment: "repaired by doctor",
		})
		return err
	}
	return batch
}

// forEachProject runs fn on a repair batch per project and returns the number of derived writes
func forEachProject(ctx context.Context, fn func(ctx context.Context, batch *cascade.Batch) error) (int, error) {
	ids, err := project_model.GetProjectIDs(ctx)
	if err != nil {
		return 0, err
	}
	writes := 0
	for _, id := range ids {
		batch := newRepairBatch(id)
		if err := fn(ctx, batch); err != nil {
			return 0, err
		}
		if err := batch.Run(ctx); err != nil {
			return 0, err
		}
		writes += batch.Writes()
	}
	return writes, nil
}

// checkClosedFlags re-derives the closed flags of every user story and milestone
func checkClosedFlags(ctx context.Context, logger log.Logger, autofix bool) error {
	count, err := inspect(ctx, autofix, func(ctx context.Context) (int, error) {
		return forEachProject(ctx, func(ctx context.Context, batch *cascade.Batch) error {
			stories, err := agile_model.GetProjectUserStories(ctx, batch.ProjectID)
			if err != nil {
				return err
			}
			for _, us := range stories {
				batch.MarkStory(us.ID)
			}
			milestones, err := agile_model.GetProjectMilestones(ctx, batch.ProjectID)
			if err != nil {
				return err
			}
			for _, m := range milestones {
				batch.MarkMilestone(m.ID)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return report(logger, autofix, count, "items with a wrong closed flag")
}

// checkTaskMilestones moves the tasks sitting outside the milestone of their user story
func checkTaskMilestones(ctx context.Context, logger log.Logger, autofix bool) error {
	count, err := inspect(ctx, autofix, func(ctx context.Context) (int, error) {
		return forEachProject(ctx, func(ctx context.Context, batch *cascade.Batch) error {
			tasks, err := agile_model.GetProjectTasks(ctx, batch.ProjectID)
			if err != nil {
				return err
			}
			stories, err := agile_model.GetProjectUserStories(ctx, batch.ProjectID)
			if err != nil {
				return err
			}
			milestoneOf := make(map[int64]int64, len(stories))
			for _, us := range stories {
				milestoneOf[us.ID] = us.MilestoneID
			}
			for _, t := range tasks {
				if t.UserStoryID == 0 {
					continue
				}
				if m, ok := milestoneOf[t.UserStoryID]; ok && m != t.MilestoneID {
					batch.MarkStoryMoved(t.UserStoryID)
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	return report(logger, autofix, count, "derived writes to realign tasks with their user story")
}

func init() {
	Register(&Check{
		Title:     "Check tasks follow the milestone of their user story",
		Name:      "task-milestones",
		IsDefault: true,
		Run:       checkTaskMilestones,
		Priority:  2,
	})
	Register(&Check{
		Title:     "Check closed flags of user stories and milestones",
		Name:      "closed-flags",
		IsDefault: true,
		Run:       checkClosedFlags,
		Priority:  3,
	})
}
