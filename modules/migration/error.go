// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package migration

import (
	"errors"
	"fmt"
)

// ErrNotSupported represents status if a downloader do not supported something.
type ErrNotSupported struct {
	Entity string
}

// IsErrNotSupported checks if an error is an ErrNotSupported
func IsErrNotSupported(err error) bool {
	var e ErrNotSupported
	return errors.As(err, &e)
}

// Error return error message
func (err ErrNotSupported) Error() string {
	if len(err.Entity) != 0 {
		return fmt.Sprintf("'%s' not supported", err.Entity)
	}
	return "not supported"
}

// ErrSourceUnauthorized is returned when the source refuses the credentials, retrying cannot help
type ErrSourceUnauthorized struct {
	Source string
}

// IsErrSourceUnauthorized checks if an error is an ErrSourceUnauthorized
func IsErrSourceUnauthorized(err error) bool {
	var e ErrSourceUnauthorized
	return errors.As(err, &e)
}

func (err ErrSourceUnauthorized) Error() string {
	return fmt.Sprintf("%s refused the credentials", err.Source)
}
