// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"fmt"
	"slices"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	watch_model "github.com/taigaio/taiga-back-sub001/models/watch"
)

// Recipients returns the users to tell about a mutation of item by actor, ordered by id.
// The candidates are the owner, the assignee, the watchers of the item and the project owner;
// each candidate is then filtered by its notify level. Users who muted the item are never told.
func Recipients(ctx context.Context, p *project_model.Project, item agile_model.Item, actorID int64) ([]*user_model.User, error) {
	watchers, err := watch_model.GetWatchers(ctx, item.ItemKind(), item.GetID())
	if err != nil {
		return nil, fmt.Errorf("GetWatchers: %w", err)
	}
	muted, err := watch_model.GetMutedUsers(ctx, item.ItemKind(), item.GetID())
	if err != nil {
		return nil, fmt.Errorf("GetMutedUsers: %w", err)
	}

	// Enough room to avoid reallocations
	unfiltered := make([]int64, 0, len(watchers)+3)
	unfiltered = append(unfiltered, item.GetOwnerID(), item.GetAssignedToID(), p.OwnerID)
	unfiltered = append(unfiltered, watchers...)

	visited := make(map[int64]bool, len(unfiltered))
	ids := make([]int64, 0, len(unfiltered))
	for _, id := range unfiltered {
		if id <= 0 || visited[id] || slices.Contains(muted, id) {
			continue
		}
		visited[id] = true
		ids = append(ids, id)
	}
	users, err := user_model.GetUsersMapByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("GetUsersMapByIDs: %w", err)
	}

	slices.Sort(ids)
	recipients := make([]*user_model.User, 0, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			continue
		}
		if id == actorID && !u.NotifyChangesByMe {
			continue
		}
		if wantsNotification(u, item, slices.Contains(watchers, id)) {
			recipients = append(recipients, u)
		}
	}
	return recipients, nil
}

func wantsNotification(u *user_model.User, item agile_model.Item, watching bool) bool {
	switch u.NotifyLevel {
	case user_model.NotifyAllOwnedProjects:
		return true
	case user_model.NotifyOnlyWatching:
		return watching
	case user_model.NotifyOnlyAssigned:
		return item.GetAssignedToID() == u.ID
	case user_model.NotifyOnlyOwner:
		return item.GetOwnerID() == u.ID
	}
	return false
}

// AutoWatch subscribes the owner and the assignee of an item, explicit choices are kept
func AutoWatch(ctx context.Context, item agile_model.Item) error {
	for _, uid := range []int64{item.GetOwnerID(), item.GetAssignedToID()} {
		if err := watch_model.CreateOrUpdateWatchMode(ctx, uid, item.GetProjectID(), item.ItemKind(), item.GetID(), watch_model.ModeAuto); err != nil {
			return err
		}
	}
	return nil
}
