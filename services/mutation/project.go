// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation

import (
	"context"
	"fmt"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	attachment_model "github.com/taigaio/taiga-back-sub001/models/attachment"
	"github.com/taigaio/taiga-back-sub001/models/db"
	history_model "github.com/taigaio/taiga-back-sub001/models/history"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	user_model "github.com/taigaio/taiga-back-sub001/models/user"
	watch_model "github.com/taigaio/taiga-back-sub001/models/watch"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	history_service "github.com/taigaio/taiga-back-sub001/services/history"
)

// checkProjectAdmin loads a project the actor may administrate
func checkProjectAdmin(ctx context.Context, projectID, actorID int64) (*project_model.Project, error) {
	p, err := project_model.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if actorID > 0 && p.OwnerID == actorID {
		return p, nil
	}
	m, err := project_model.GetMembership(ctx, p.ID, actorID)
	if project_model.IsErrMembershipNotExist(err) {
		return nil, agile_model.ErrPermissionDenied{Action: "admin_project"}
	} else if err != nil {
		return nil, err
	}
	if !m.IsAdmin {
		return nil, agile_model.ErrPermissionDenied{Action: "admin_project"}
	}
	return p, nil
}

// DeleteProject deletes a project with every item, history entry, watch and attachment it owns
func DeleteProject(ctx context.Context, projectID, actorID int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		p, err := project_model.GetProjectByID(ctx, projectID)
		if err != nil {
			return err
		}
		if p.OwnerID != actorID {
			return agile_model.ErrPermissionDenied{Action: "delete_project"}
		}
		if err := project_model.LockProject(ctx, p.ID); err != nil {
			return err
		}

		stories, err := agile_model.GetProjectUserStories(ctx, p.ID)
		if err != nil {
			return err
		}
		for _, us := range stories {
			if err := agile_model.DeleteRolePointsOfUserStory(ctx, us.ID); err != nil {
				return err
			}
			if err := agile_model.DeleteRelatedOfUserStory(ctx, us.ID); err != nil {
				return err
			}
		}
		for _, bean := range []any{
			&agile_model.Task{ProjectID: p.ID},
			&agile_model.UserStory{ProjectID: p.ID},
			&agile_model.Issue{ProjectID: p.ID},
			&agile_model.Epic{ProjectID: p.ID},
			&agile_model.Milestone{ProjectID: p.ID},
		} {
			// the beans carry a version column, delete by condition without the version check
			if _, err := db.GetEngine(ctx).Where("project_id=?", p.ID).NoAutoCondition().Delete(bean); err != nil {
				return fmt.Errorf("delete %T: %w", bean, err)
			}
		}
		if err := history_model.DeleteProjectEntries(ctx, p.ID); err != nil {
			return err
		}
		if err := watch_model.DeleteProjectWatches(ctx, p.ID); err != nil {
			return err
		}
		if err := attachment_model.DeleteProjectAttachments(ctx, p.ID); err != nil {
			return err
		}
		if err := project_model.DeleteProjectRows(ctx, p.ID); err != nil {
			return err
		}
		log.Info("Project %d (%s) deleted by user %d", p.ID, p.Slug, actorID)
		return nil
	})
}

// AddRole adds a role to the project, a computable role is estimated by every user story with "?"
func AddRole(ctx context.Context, actorID int64, r *project_model.Role) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		p, err := checkProjectAdmin(ctx, r.ProjectID, actorID)
		if err != nil {
			return err
		}
		if err := project_model.LockProject(ctx, p.ID); err != nil {
			return err
		}
		if err := project_model.CreateRole(ctx, r); err != nil {
			return err
		}
		if !r.Computable {
			return nil
		}
		return rewriteEstimations(ctx, p.ID, actorID, func(ctx context.Context) error {
			return agile_model.AddRoleToUserStories(ctx, p.ID, r.ID)
		})
	})
}

// DeleteRole deletes a role of the project with its estimations, its members move to moveToRoleID
func DeleteRole(ctx context.Context, actorID, projectID, roleID, moveToRoleID int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		p, err := checkProjectAdmin(ctx, projectID, actorID)
		if err != nil {
			return err
		}
		if err := project_model.LockProject(ctx, p.ID); err != nil {
			return err
		}
		if _, err := project_model.GetRoleByID(ctx, p.ID, roleID); err != nil {
			return err
		}
		if err := rewriteEstimations(ctx, p.ID, actorID, func(ctx context.Context) error {
			return agile_model.DeleteRolePointsOfRole(ctx, roleID)
		}); err != nil {
			return err
		}
		if err := project_model.DeleteRoleRow(ctx, p.ID, roleID, moveToRoleID); err != nil {
			return err
		}
		history_service.ForgetName("role", roleID)
		return nil
	})
}

// rewriteEstimations runs rewrite over the estimations of the project, every user story whose
// points changed gets a new version and a change entry by the actor
func rewriteEstimations(ctx context.Context, projectID, actorID int64, rewrite func(ctx context.Context) error) error {
	stories, err := agile_model.GetProjectUserStories(ctx, projectID)
	if err != nil {
		return err
	}
	preStates := make([]history_model.Snapshot, len(stories))
	for i, us := range stories {
		if preStates[i], err = history_service.Freeze(ctx, us); err != nil {
			return err
		}
	}
	if err := rewrite(ctx); err != nil {
		return err
	}

	actor := history_service.Actor{ID: actorID}
	if u, err := user_model.GetUserByID(ctx, actorID); err == nil {
		actor = history_service.ActorOf(u)
	} else if !user_model.IsErrUserNotExist(err) {
		return err
	}
	for i, us := range stories {
		postState, err := history_service.Freeze(ctx, us)
		if err != nil {
			return err
		}
		if len(history_service.Diff(preStates[i], postState)) == 0 {
			continue
		}
		pre := *us
		if err := agile_model.UpdateItemCols(ctx, us, "updated_unix"); err != nil {
			return err
		}
		if _, err := history_service.Record(ctx, &pre, us, history_service.RecordOptions{
			Actor:    actor,
			PreState: preStates[i],
		}); err != nil {
			return fmt.Errorf("history of user story %d: %w", us.ID, err)
		}
	}
	return nil
}

// SetWatching subscribes or unsubscribes a user, an unsubscribed user is never auto-watched again
func SetWatching(ctx context.Context, userID int64, kind project_model.ItemKind, id int64, watching bool) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		item, err := agile_model.GetItem(ctx, kind, id)
		if err != nil {
			return err
		}
		p, err := project_model.GetProjectByID(ctx, item.GetProjectID())
		if err != nil {
			return err
		}
		ok, err := project_model.HasPermission(ctx, p, userID, project_model.PermissionName(project_model.ActionView, kind))
		if err != nil {
			return err
		}
		if !ok {
			return agile_model.ErrPermissionDenied{Action: project_model.PermissionName(project_model.ActionView, kind)}
		}
		mode := watch_model.ModeNormal
		if !watching {
			mode = watch_model.ModeDont
		}
		return watch_model.CreateOrUpdateWatchMode(ctx, userID, p.ID, kind, id, mode)
	})
}

// GetHistory returns the history of an item, oldest first
func GetHistory(ctx context.Context, kind project_model.ItemKind, id int64) ([]*history_model.Entry, error) {
	return history_service.GetHistory(ctx, kind, id)
}

// AllocateRef hands out the next ref of kind in the project
func AllocateRef(ctx context.Context, projectID int64, kind project_model.ItemKind) (int64, error) {
	return agile_model.AllocateRef(ctx, projectID, kind)
}
