// Copyright 2024 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package agile

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	project_model "github.com/taigaio/taiga-back-sub001/models/project"
	"github.com/taigaio/taiga-back-sub001/modules/util"
)

// ErrValidation is returned when a patch violates a type or catalog constraint
type ErrValidation struct {
	Fields map[string]string
}

// NewErrValidation returns a validation error about a single field
func NewErrValidation(field, format string, args ...any) ErrValidation {
	return ErrValidation{Fields: map[string]string{field: fmt.Sprintf(format, args...)}}
}

// IsErrValidation checks if an error is a ErrValidation
func IsErrValidation(err error) bool {
	var e ErrValidation
	return errors.As(err, &e)
}

func (err ErrValidation) Error() string {
	parts := make([]string, 0, len(err.Fields))
	for _, field := range slices.Sorted(maps.Keys(err.Fields)) {
		parts = append(parts, field+": "+err.Fields[field])
	}
	return "validation failed [" + strings.Join(parts, "; ") + "]"
}

func (err ErrValidation) Unwrap() error {
	return util.ErrInvalidArgument
}

// ErrStaleObject is returned when the patch overlaps fields changed since the expected version
type ErrStaleObject struct {
	Kind   project_model.ItemKind
	ID     int64
	Fields []string
}

// IsErrStaleObject checks if an error is a ErrStaleObject
func IsErrStaleObject(err error) bool {
	var e ErrStaleObject
	return errors.As(err, &e)
}

func (err ErrStaleObject) Error() string {
	return fmt.Sprintf("%s %d was modified concurrently [fields: %s]", err.Kind, err.ID, strings.Join(err.Fields, ", "))
}

// ErrReadonlyField is returned when a patch names a derived field
type ErrReadonlyField struct {
	Field string
}

// IsErrReadonlyField checks if an error is a ErrReadonlyField
func IsErrReadonlyField(err error) bool {
	var e ErrReadonlyField
	return errors.As(err, &e)
}

func (err ErrReadonlyField) Error() string {
	return fmt.Sprintf("field is read-only [field: %s]", err.Field)
}

func (err ErrReadonlyField) Unwrap() error {
	return util.ErrInvalidArgument
}

// ErrPreconditionFailed is a cross entity consistency refusal
type ErrPreconditionFailed struct {
	Reason string
}

// IsErrPreconditionFailed checks if an error is a ErrPreconditionFailed
func IsErrPreconditionFailed(err error) bool {
	var e ErrPreconditionFailed
	return errors.As(err, &e)
}

func (err ErrPreconditionFailed) Error() string {
	return "precondition failed: " + err.Reason
}

// ErrNotExist is returned when a referenced agile item is missing
type ErrNotExist struct {
	Kind project_model.ItemKind
	ID   int64
}

// IsErrNotExist checks if an error is a ErrNotExist
func IsErrNotExist(err error) bool {
	var e ErrNotExist
	return errors.As(err, &e)
}

func (err ErrNotExist) Error() string {
	return fmt.Sprintf("%s does not exist [id: %d]", err.Kind, err.ID)
}

func (err ErrNotExist) Unwrap() error {
	return util.ErrNotExist
}

// ErrTransientConflict wraps lock timeouts and serialization failures, the whole request may be retried
type ErrTransientConflict struct {
	Err error
}

// IsErrTransientConflict checks if an error is a ErrTransientConflict
func IsErrTransientConflict(err error) bool {
	var e ErrTransientConflict
	return errors.As(err, &e)
}

func (err ErrTransientConflict) Error() string {
	return "transient conflict: " + err.Err.Error()
}

func (err ErrTransientConflict) Unwrap() error {
	return err.Err
}

// ErrPermissionDenied is returned when the actor lacks the permission of the operation
type ErrPermissionDenied struct {
	Action string
}

// IsErrPermissionDenied checks if an error is a ErrPermissionDenied
func IsErrPermissionDenied(err error) bool {
	var e ErrPermissionDenied
	return errors.As(err, &e)
}

func (err ErrPermissionDenied) Error() string {
	return fmt.Sprintf("permission denied [action: %s]", err.Action)
}

func (err ErrPermissionDenied) Unwrap() error {
	return util.ErrPermissionDenied
}
