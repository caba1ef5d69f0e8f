// Copyright 2014 The Gogs Authors. All rights reserved.
// Copyright 2019 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/timeutil"
	"github.com/taigaio/taiga-back-sub001/modules/util"

	"xorm.io/builder"
)

const (
	// GhostUserID is the id used in memory for authors that have no local account
	GhostUserID   = -1
	GhostUserName = "Ghost"
)

// User represents the object of an individual.
type User struct {
	ID                int64       `xorm:"pk autoincr"`
	Name              string      `xorm:"UNIQUE NOT NULL"`
	LowerName         string      `xorm:"UNIQUE NOT NULL"`
	FullName          string
	Email             string      `xorm:"NOT NULL"`
	IsActive          bool        `xorm:"INDEX"`
	NotifyLevel       NotifyLevel `xorm:"NOT NULL DEFAULT 1"`
	NotifyChangesByMe bool        `xorm:"NOT NULL DEFAULT false"`

	CreatedUnix timeutil.TimeStamp `xorm:"INDEX created"`
	UpdatedUnix timeutil.TimeStamp `xorm:"INDEX updated"`
}

func init() {
	db.RegisterModel(new(User))
}

// NewGhostUser creates and returns a fake user for an author that could not be bound to a local account.
func NewGhostUser(name string) *User {
	if name == "" {
		name = GhostUserName
	}
	return &User{
		ID:        GhostUserID,
		Name:      name,
		LowerName: strings.ToLower(name),
		FullName:  name,
	}
}

// IsGhost check if user is fake user for a deleted or unbound account
func (u *User) IsGhost() bool {
	if u == nil {
		return false
	}
	return u.ID <= 0
}

// DisplayName returns full name if it's not empty,
// returns username otherwise.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	trimmed := strings.TrimSpace(u.FullName)
	if len(trimmed) > 0 {
		return trimmed
	}
	return u.Name
}

// ErrUserNotExist represents a "UserNotExist" kind of error.
type ErrUserNotExist struct {
	UID  int64
	Name string
}

// IsErrUserNotExist checks if an error is a ErrUserNotExist.
func IsErrUserNotExist(err error) bool {
	_, ok := err.(ErrUserNotExist)
	return ok
}

func (err ErrUserNotExist) Error() string {
	return fmt.Sprintf("user does not exist [uid: %d, name: %s]", err.UID, err.Name)
}

// Unwrap unwraps this error as a ErrNotExist error
func (err ErrUserNotExist) Unwrap() error {
	return util.ErrNotExist
}

// ErrUserAlreadyExist represents a "user already exists" error.
type ErrUserAlreadyExist struct {
	Name string
}

// IsErrUserAlreadyExist checks if an error is a ErrUserAlreadyExists.
func IsErrUserAlreadyExist(err error) bool {
	var e ErrUserAlreadyExist
	return errors.As(err, &e)
}

func (err ErrUserAlreadyExist) Error() string {
	return fmt.Sprintf("user already exists [name: %s]", err.Name)
}

// Unwrap unwraps this error as a ErrExist error
func (err ErrUserAlreadyExist) Unwrap() error {
	return util.ErrAlreadyExist
}

// CreateUser creates record of a new user.
func CreateUser(ctx context.Context, u *User) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return util.NewInvalidArgumentErrorf("user name is empty")
	}
	u.LowerName = strings.ToLower(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if u.NotifyLevel == 0 {
		u.NotifyLevel = NotifyAllOwnedProjects
	}
	return db.WithTx(ctx, func(ctx context.Context) error {
		has, err := db.GetEngine(ctx).Exist(&User{LowerName: u.LowerName})
		if err != nil {
			return err
		} else if has {
			return ErrUserAlreadyExist{u.Name}
		}
		return db.Insert(ctx, u)
	})
}

// GetUserByID returns the user object by given ID if exists.
func GetUserByID(ctx context.Context, id int64) (*User, error) {
	u := new(User)
	has, err := db.GetEngine(ctx).ID(id).Get(u)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrUserNotExist{UID: id}
	}
	return u, nil
}

// GetUserByName returns user by given name.
func GetUserByName(ctx context.Context, name string) (*User, error) {
	if len(name) == 0 {
		return nil, ErrUserNotExist{Name: name}
	}
	u := &User{LowerName: strings.ToLower(name)}
	has, err := db.GetEngine(ctx).Get(u)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrUserNotExist{Name: name}
	}
	return u, nil
}

// GetUserByEmail returns the user with the given email, compared case-insensitively
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrUserNotExist{Name: email}
	}
	u := new(User)
	has, err := db.GetEngine(ctx).Where(builder.Expr("LOWER(email) = ?", email)).Get(u)
	if err != nil {
		return nil, err
	} else if !has {
		return nil, ErrUserNotExist{Name: email}
	}
	return u, nil
}

// GetUsersMapByIDs returns the users of the given ids keyed by id, missing users are skipped
func GetUsersMapByIDs(ctx context.Context, ids []int64) (map[int64]*User, error) {
	ids = util.SortedUnique(util.SliceRemoveAll(ids, 0))
	users := make(map[int64]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	return users, db.GetEngine(ctx).In("id", ids).Find(&users)
}

// UpdateUserCols update user according special columns
func UpdateUserCols(ctx context.Context, u *User, cols ...string) error {
	_, err := db.GetEngine(ctx).ID(u.ID).Cols(cols...).Update(u)
	return err
}
