// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package mutation

import (
	"context"
	"errors"

	agile_model "github.com/taigaio/taiga-back-sub001/models/agile"
	"github.com/taigaio/taiga-back-sub001/models/db"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// ErrorKind classifies the errors returned by the engine
type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindStaleObject        ErrorKind = "STALE_OBJECT_ERROR"
	KindReadonlyField      ErrorKind = "READONLY_FIELD"
	KindPreconditionFailed ErrorKind = "PRECONDITION_FAILED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindTransientConflict  ErrorKind = "TRANSIENT_CONFLICT"
	KindPermissionDenied   ErrorKind = "PERMISSION_DENIED"
	KindInternal           ErrorKind = "INTERNAL_ERROR"
)

// KindOf returns the kind of err, a nil error has no kind and anything unknown is internal
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	// read-only fields unwrap to invalid argument, test them first
	case agile_model.IsErrReadonlyField(err):
		return KindReadonlyField
	case agile_model.IsErrValidation(err):
		return KindValidation
	case agile_model.IsErrStaleObject(err):
		return KindStaleObject
	case agile_model.IsErrPreconditionFailed(err):
		return KindPreconditionFailed
	case agile_model.IsErrTransientConflict(err), db.IsErrLockTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return KindTransientConflict
	case errors.Is(err, util.ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, util.ErrNotExist):
		return KindNotFound
	case errors.Is(err, util.ErrInvalidArgument):
		return KindValidation
	}
	return KindInternal
}

// Retryable reports whether the whole request may be sent again as is
func (k ErrorKind) Retryable() bool {
	return k == KindTransientConflict
}

// resultLabel is the metrics label of a mutation outcome
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(KindOf(err))
}
