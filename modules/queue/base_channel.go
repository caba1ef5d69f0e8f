// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"sync"
	"time"
)

type baseChannel struct {
	c   chan []byte
	mu  sync.Mutex
	cfg *BaseConfig
}

var _ baseQueue = (*baseChannel)(nil)

func newBaseChannelSimple(cfg *BaseConfig) (baseQueue, error) {
	return &baseChannel{c: make(chan []byte, cfg.Length), cfg: cfg}, nil
}

func (q *baseChannel) PushItem(ctx context.Context, data []byte) error {
	select {
	case q.c <- data:
		return nil
	case <-time.After(pushBlockTime):
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *baseChannel) PopItem(ctx context.Context) ([]byte, error) {
	select {
	case data, ok := <-q.c:
		if !ok {
			return nil, context.Canceled
		}
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *baseChannel) Len(ctx context.Context) (int, error) {
	return len(q.c), nil
}

func (q *baseChannel) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	close(q.c)
	return nil
}

func (q *baseChannel) RemoveAll(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.c) > 0 {
		<-q.c
	}
	return nil
}
