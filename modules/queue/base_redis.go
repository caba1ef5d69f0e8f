// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"sync"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/log"

	"github.com/redis/go-redis/v9"
)

type baseRedis struct {
	client redis.UniversalClient
	cfg    *BaseConfig

	mu sync.Mutex
}

var _ baseQueue = (*baseRedis)(nil)

func newBaseRedisSimple(cfg *BaseConfig) (baseQueue, error) {
	opts, err := redis.ParseURL(cfg.ConnStr)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	for i := 0; i < 10; i++ {
		err = client.Ping(context.Background()).Err()
		if err == nil {
			break
		}
		log.Warn("Redis is not ready, waiting for 1 second to retry: %v", err)
		time.Sleep(time.Second)
	}
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &baseRedis{cfg: cfg, client: client}, nil
}

func (q *baseRedis) PushItem(ctx context.Context, data []byte) error {
	return backoffErr(ctx, backoffBegin, backoffUpper, time.After(pushBlockTime), func() (retry bool, err error) {
		q.mu.Lock()
		defer q.mu.Unlock()

		cnt, err := q.client.LLen(ctx, q.cfg.QueueFullName).Result()
		if err != nil {
			return false, err
		}
		if int(cnt) >= q.cfg.Length {
			return true, nil
		}
		return false, q.client.RPush(ctx, q.cfg.QueueFullName, data).Err()
	})
}

func (q *baseRedis) PopItem(ctx context.Context) ([]byte, error) {
	return backoffRetErr(ctx, backoffBegin, backoffUpper, nil, func() (retry bool, data []byte, err error) {
		q.mu.Lock()
		defer q.mu.Unlock()

		data, err = q.client.LPop(ctx, q.cfg.QueueFullName).Bytes()
		if err != nil {
			// redis.Nil means empty, other errors are retried until the context ends
			return true, nil, nil
		}
		return false, data, nil
	})
}

func (q *baseRedis) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cnt, err := q.client.LLen(ctx, q.cfg.QueueFullName).Result()
	return int(cnt), err
}

func (q *baseRedis) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client.Close()
}

func (q *baseRedis) RemoveAll(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.client.Del(ctx, q.cfg.QueueFullName).Err()
}
