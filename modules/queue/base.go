// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"errors"
	"time"
)

var pushBlockTime = 5 * time.Second

// ErrQueueFull is returned when an item could not be pushed within the push block time
var ErrQueueFull = errors.New("queue is full")

type baseQueue interface {
	PushItem(ctx context.Context, data []byte) error
	// PopItem blocks until an item is available or the context is done
	PopItem(ctx context.Context) ([]byte, error)
	Len(ctx context.Context) (int, error)
	Close() error
	RemoveAll(ctx context.Context) error
}
