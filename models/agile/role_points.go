// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"context"

	"github.com/taigaio/taiga-back-sub001/models/db"
	project_model "github.com/taigaio/taiga-back-sub001/models/project"

	"xorm.io/builder"
)

// RolePoints is the estimation of a user story by one computable role
type RolePoints struct {
	ID          int64 `xorm:"pk autoincr"`
	UserStoryID int64 `xorm:"INDEX UNIQUE(story_role) NOT NULL"`
	RoleID      int64 `xorm:"INDEX UNIQUE(story_role) NOT NULL"`
	PointsID    int64 `xorm:"NOT NULL"`
}

func init() {
	db.RegisterModel(new(RolePoints))
}

// GetRolePoints returns role id to points id of the user story
func GetRolePoints(ctx context.Context, userStoryID int64) (map[int64]int64, error) {
	rows := make([]*RolePoints, 0, 8)
	if err := db.GetEngine(ctx).Where("user_story_id=?", userStoryID).Find(&rows); err != nil {
		return nil, err
	}
	points := make(map[int64]int64, len(rows))
	for _, rp := range rows {
		points[rp.RoleID] = rp.PointsID
	}
	return points, nil
}

// SetRolePoints sets the estimation of one role, the row is created when missing
func SetRolePoints(ctx context.Context, userStoryID, roleID, pointsID int64) error {
	affected, err := db.GetEngine(ctx).Where("user_story_id=? AND role_id=?", userStoryID, roleID).
		Cols("points_id").Update(&RolePoints{PointsID: pointsID})
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	has, err := db.GetEngine(ctx).Exist(&RolePoints{UserStoryID: userStoryID, RoleID: roleID})
	if err != nil || has {
		return err
	}
	return db.Insert(ctx, &RolePoints{UserStoryID: userStoryID, RoleID: roleID, PointsID: pointsID})
}

// SyncRolePoints makes the estimation of the user story cover exactly the computable roles:
// missing roles get the unknown points, entries of other roles are deleted.
func SyncRolePoints(ctx context.Context, us *UserStory) error {
	roles, err := project_model.GetComputableRoles(ctx, us.ProjectID)
	if err != nil {
		return err
	}
	current, err := GetRolePoints(ctx, us.ID)
	if err != nil {
		return err
	}
	roleIDs := make([]int64, 0, len(roles))
	var unknown *project_model.Points
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
		if _, ok := current[r.ID]; ok {
			continue
		}
		if unknown == nil {
			if unknown, err = project_model.GetUnknownPoints(ctx, us.ProjectID); err != nil {
				return err
			}
		}
		if err := db.Insert(ctx, &RolePoints{UserStoryID: us.ID, RoleID: r.ID, PointsID: unknown.ID}); err != nil {
			return err
		}
	}
	cond := builder.Eq{"user_story_id": us.ID}.And(builder.NotIn("role_id", roleIDs))
	if len(roleIDs) == 0 {
		cond = builder.Eq{"user_story_id": us.ID}
	}
	_, err = db.GetEngine(ctx).Where(cond).Delete(new(RolePoints))
	return err
}

// AddRoleToUserStories gives every user story of the project the unknown estimation for the role
func AddRoleToUserStories(ctx context.Context, projectID, roleID int64) error {
	unknown, err := project_model.GetUnknownPoints(ctx, projectID)
	if err != nil {
		return err
	}
	_, err = db.GetEngine(ctx).Exec("INSERT INTO role_points (user_story_id, role_id, points_id) "+
		"SELECT id, ?, ? FROM user_story WHERE project_id = ? AND id NOT IN (SELECT user_story_id FROM role_points WHERE role_id = ?)",
		roleID, unknown.ID, projectID, roleID)
	return err
}

// DeleteRolePointsOfRole deletes every estimation made for the role
func DeleteRolePointsOfRole(ctx context.Context, roleID int64) error {
	_, err := db.GetEngine(ctx).Where("role_id=?", roleID).Delete(new(RolePoints))
	return err
}

// DeleteRolePointsOfUserStory deletes the estimation of the user story
func DeleteRolePointsOfUserStory(ctx context.Context, userStoryID int64) error {
	_, err := db.GetEngine(ctx).Where("user_story_id=?", userStoryID).Delete(new(RolePoints))
	return err
}

// TotalPoints sums the known estimations of the user story
func TotalPoints(ctx context.Context, userStoryID int64) (float64, error) {
	var total float64
	_, err := db.GetEngine(ctx).SQL("SELECT COALESCE(SUM(p.value), 0) FROM role_points rp INNER JOIN points p ON p.id = rp.points_id "+
		"WHERE rp.user_story_id = ? AND p.value IS NOT NULL", userStoryID).Get(&total)
	return total, err
}
