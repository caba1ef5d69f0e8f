// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// ErrAlreadyInTransaction is returned when a new transaction is requested inside an existing one
var ErrAlreadyInTransaction = errors.New("database connection has already been in a transaction")

// ErrCancelled represents an error due to context cancellation
type ErrCancelled struct {
	Message string
}

// IsErrCancelled checks if an error is a ErrCancelled.
func IsErrCancelled(err error) bool {
	_, ok := err.(ErrCancelled)
	return ok
}

func (err ErrCancelled) Error() string {
	return "Cancelled: " + err.Message
}

// ErrCancelledf returns an ErrCancelled for the provided format and args
func ErrCancelledf(format string, args ...any) error {
	return ErrCancelled{
		fmt.Sprintf(format, args...),
	}
}

// ErrNotExist represents a non-exist error.
type ErrNotExist struct {
	Resource string
	ID       int64
}

// Error implements error interface
func (err ErrNotExist) Error() string {
	name := "record"
	if err.Resource != "" {
		name = err.Resource
	}

	if err.ID != 0 {
		return fmt.Sprintf("%s does not exist [id: %d]", name, err.ID)
	}
	return name + " does not exist"
}

// Unwrap unwraps this as a ErrNotExist err
func (err ErrNotExist) Unwrap() error {
	return util.ErrNotExist
}

// lockErrorMarkers are driver messages of lock wait timeouts and serialization failures
var lockErrorMarkers = []string{
	// sqlite
	"database is locked",
	"sqlite_busy",
	"database table is locked",
	// postgres
	"lock timeout",
	"could not obtain lock",
	"deadlock detected",
	"could not serialize access",
	// mysql
	"lock wait timeout exceeded",
	"deadlock found",
}

// IsErrLockTimeout reports whether err is a lock wait timeout, deadlock or serialization failure of the store
func IsErrLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrGetResourceIndexFailed) || errors.Is(err, ErrResouceOutdated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range lockErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
