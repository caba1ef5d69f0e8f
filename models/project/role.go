// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package project

import (
	"context"
	"slices"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"github.com/google/uuid"
	"xorm.io/builder"
)

// Permission actions on agile items, a permission is named "<action>_<kind slug>", for example "modify_us"
const (
	ActionView   = "view"
	ActionAdd    = "add"
	ActionModify = "modify"
	ActionDelete = "delete"
)

// PermissionName returns the permission needed to run action on items of kind
func PermissionName(action string, kind ItemKind) string {
	return action + "_" + kind.PermissionSlug()
}

// AllPermissions returns every item permission
func AllPermissions() []string {
	perms := make([]string, 0, 20)
	for _, kind := range []ItemKind{KindEpic, KindUserStory, KindTask, KindIssue, KindMilestone} {
		for _, action := range []string{ActionView, ActionAdd, ActionModify, ActionDelete} {
			perms = append(perms, PermissionName(action, kind))
		}
	}
	return perms
}

// Role is a named permission bundle of a project.
// Computable roles take part in the estimation, every user story has points for them.
type Role struct {
	ID          int64    `xorm:"pk autoincr"`
	ProjectID   int64    `xorm:"INDEX NOT NULL"`
	Name        string   `xorm:"NOT NULL"`
	Slug        string   `xorm:"NOT NULL"`
	SortOrder   int64    `xorm:"NOT NULL DEFAULT 0"`
	Computable  bool     `xorm:"NOT NULL DEFAULT true"`
	Permissions []string `xorm:"JSON TEXT"`
}

// Membership grants a role to a user within a project, a membership without user is a pending invitation
type Membership struct {
	ID          int64  `xorm:"pk autoincr"`
	ProjectID   int64  `xorm:"INDEX NOT NULL"`
	UserID      int64  `xorm:"INDEX"`
	RoleID      int64  `xorm:"INDEX NOT NULL"`
	Email       string `xorm:"INDEX"`
	Token       string `xorm:"UNIQUE"`
	IsAdmin     bool   `xorm:"NOT NULL DEFAULT false"`
	InvitedByID int64

	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
}

func init() {
	db.RegisterModel(new(Role))
	db.RegisterModel(new(Membership))
}

// HasPermission reports whether the role grants perm
func (r *Role) HasPermission(perm string) bool {
	return slices.Contains(r.Permissions, perm)
}

// IsPending reports whether the membership is an invitation not accepted yet
func (m *Membership) IsPending() bool {
	return m.UserID == 0
}

// CreateRole inserts a role at the end of the project roles
func CreateRole(ctx context.Context, r *Role) error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return util.NewInvalidArgumentErrorf("role name is empty")
	}
	if r.Slug == "" {
		r.Slug = util.Slugify(r.Name)
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		if r.SortOrder == 0 {
			maxOrder, err := maxSortOrder(ctx, "role", builder.Eq{"project_id": r.ProjectID})
			if err != nil {
				return err
			}
			r.SortOrder = maxOrder + 1
		}
		return db.Insert(ctx, r)
	})
}

// GetRoles returns the roles of a project
func GetRoles(ctx context.Context, projectID int64) ([]*Role, error) {
	roles := make([]*Role, 0, 8)
	return roles, db.GetEngine(ctx).Where("project_id=?", projectID).OrderBy("sort_order ASC, id ASC").Find(&roles)
}

// GetComputableRoles returns the roles taking part in the estimation
func GetComputableRoles(ctx context.Context, projectID int64) ([]*Role, error) {
	roles := make([]*Role, 0, 8)
	return roles, db.GetEngine(ctx).Where("project_id=? AND computable=?", projectID, true).OrderBy("sort_order ASC, id ASC").Find(&roles)
}

// GetRoleByID returns a role of the project
func GetRoleByID(ctx context.Context, projectID, id int64) (*Role, error) {
	r, has, err := db.Get[Role](ctx, builder.Eq{"id": id, "project_id": projectID})
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrCatalogEntryNotExist{Catalog: "role", ID: id, ProjectID: projectID}
	}
	return r, nil
}

// GetRoleNames returns id to name of roles
func GetRoleNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	ids = util.SortedUnique(util.SliceRemoveAll(ids, 0))
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	roles := make([]*Role, 0, len(ids))
	if err := db.GetEngine(ctx).In("id", ids).Find(&roles); err != nil {
		return nil, err
	}
	for _, r := range roles {
		names[r.ID] = r.Name
	}
	return names, nil
}

// DeleteRoleRow deletes a role, the memberships holding it move to moveToRoleID
func DeleteRoleRow(ctx context.Context, projectID, roleID, moveToRoleID int64) error {
	return db.WithTx(ctx, func(ctx context.Context) error {
		if moveToRoleID > 0 {
			if _, err := GetRoleByID(ctx, projectID, moveToRoleID); err != nil {
				return err
			}
			if _, err := db.GetEngine(ctx).Where("project_id=? AND role_id=?", projectID, roleID).
				Cols("role_id").Update(&Membership{RoleID: moveToRoleID}); err != nil {
				return err
			}
		} else {
			n, err := db.GetEngine(ctx).Count(&Membership{ProjectID: projectID, RoleID: roleID})
			if err != nil {
				return err
			}
			if n > 0 {
				return util.NewInvalidArgumentErrorf("role %d still has %d memberships", roleID, n)
			}
		}
		_, err := db.GetEngine(ctx).Delete(&Role{ID: roleID, ProjectID: projectID})
		return err
	})
}

// AddMember adds an accepted membership of user to the project
func AddMember(ctx context.Context, projectID, userID, roleID int64, isAdmin bool) (*Membership, error) {
	return db.WithTx2(ctx, func(ctx context.Context) (*Membership, error) {
		if _, err := GetRoleByID(ctx, projectID, roleID); err != nil {
			return nil, err
		}
		m := new(Membership)
		has, err := db.GetEngine(ctx).Where("project_id=? AND user_id=?", projectID, userID).Get(m)
		if err != nil {
			return nil, err
		}
		if has {
			m.RoleID, m.IsAdmin = roleID, isAdmin
			_, err = db.GetEngine(ctx).ID(m.ID).Cols("role_id", "is_admin").Update(m)
			return m, err
		}
		m = &Membership{ProjectID: projectID, UserID: userID, RoleID: roleID, IsAdmin: isAdmin, Token: uuid.NewString()}
		return m, db.Insert(ctx, m)
	})
}

// InviteMember creates a pending membership identified by an opaque token
func InviteMember(ctx context.Context, projectID, roleID, invitedByID int64, email string) (*Membership, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, util.NewInvalidArgumentErrorf("invitation email is empty")
	}
	return db.WithTx2(ctx, func(ctx context.Context) (*Membership, error) {
		if _, err := GetRoleByID(ctx, projectID, roleID); err != nil {
			return nil, err
		}
		m := &Membership{ProjectID: projectID, RoleID: roleID, Email: email, InvitedByID: invitedByID, Token: uuid.NewString()}
		return m, db.Insert(ctx, m)
	})
}

// AcceptInvitation binds the pending membership of token to the user
func AcceptInvitation(ctx context.Context, token string, userID int64) (*Membership, error) {
	return db.WithTx2(ctx, func(ctx context.Context) (*Membership, error) {
		m := new(Membership)
		has, err := db.GetEngine(ctx).Where("token=?", token).Get(m)
		if err != nil {
			return nil, err
		} else if !has || !m.IsPending() {
			return nil, ErrMembershipNotExist{Token: token}
		}
		exists, err := db.GetEngine(ctx).Exist(&Membership{ProjectID: m.ProjectID, UserID: userID})
		if err != nil {
			return nil, err
		} else if exists {
			return nil, util.NewAlreadyExistErrorf("user %d is already a member of project %d", userID, m.ProjectID)
		}
		m.UserID = userID
		_, err = db.GetEngine(ctx).ID(m.ID).Cols("user_id").Update(m)
		return m, err
	})
}

// GetMembership returns the accepted membership of user in the project
func GetMembership(ctx context.Context, projectID, userID int64) (*Membership, error) {
	if userID <= 0 {
		return nil, ErrMembershipNotExist{ProjectID: projectID, UserID: userID}
	}
	m := new(Membership)
	has, err := db.GetEngine(ctx).Where("project_id=? AND user_id=?", projectID, userID).Get(m)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrMembershipNotExist{ProjectID: projectID, UserID: userID}
	}
	return m, nil
}

// GetMemberUserIDs returns the ids of the users with an accepted membership
func GetMemberUserIDs(ctx context.Context, projectID int64) ([]int64, error) {
	ids := make([]int64, 0, 10)
	return ids, db.GetEngine(ctx).Table("membership").Where("project_id=? AND user_id > 0", projectID).Cols("user_id").Find(&ids)
}

// IsMember reports whether the user owns the project or holds an accepted membership
func IsMember(ctx context.Context, p *Project, userID int64) (bool, error) {
	if userID > 0 && p.OwnerID == userID {
		return true, nil
	}
	if userID <= 0 {
		return false, nil
	}
	return db.GetEngine(ctx).Where("project_id=? AND user_id=?", p.ID, userID).Exist(new(Membership))
}

// HasPermission reports whether user may run perm in the project.
// The owner and admin members hold every permission.
func HasPermission(ctx context.Context, p *Project, userID int64, perm string) (bool, error) {
	if userID > 0 && p.OwnerID == userID {
		return true, nil
	}
	m, err := GetMembership(ctx, p.ID, userID)
	if IsErrMembershipNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if m.IsAdmin {
		return true, nil
	}
	r, err := GetRoleByID(ctx, p.ID, m.RoleID)
	if IsErrCatalogEntryNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return r.HasPermission(perm), nil
}
