// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/setting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWorkerPoolQueue[T any](q *WorkerPoolQueue[T]) func() {
	go q.Run()
	return func() {
		q.ShutdownWait(1 * time.Second)
	}
}

func TestWorkerPoolQueueUnhandled(t *testing.T) {
	mu := sync.Mutex{}

	test := func(t *testing.T, queueSetting setting.QueueSettings) {
		queueSetting.Length = 100
		queueSetting.Type = "channel"
		m := map[int]int{}

		// odds are handled once, evens are handled twice
		handler := func(items ...int) (unhandled []int) {
			for _, item := range items {
				mu.Lock()
				if item%2 == 0 && m[item] == 0 {
					unhandled = append(unhandled, item)
				}
				m[item]++
				mu.Unlock()
			}
			return unhandled
		}

		q, err := NewWorkerPoolQueueWithContext(context.Background(), "test-workpoolqueue", queueSetting, handler)
		require.NoError(t, err)
		stop := runWorkerPoolQueue(q)
		for i := 0; i < queueSetting.Length; i++ {
			assert.NoError(t, q.Push(i))
		}
		assert.NoError(t, q.FlushWithContext(context.Background(), 5*time.Second))
		stop()

		mu.Lock()
		defer mu.Unlock()
		for i := 0; i < queueSetting.Length; i++ {
			if i%2 == 0 {
				assert.Equal(t, 2, m[i], "item %d", i)
			} else {
				assert.Equal(t, 1, m[i], "item %d", i)
			}
		}
	}

	t.Run("1/1", func(t *testing.T) {
		test(t, setting.QueueSettings{BatchLength: 1, MaxWorkers: 1})
	})
	t.Run("3/1", func(t *testing.T) {
		test(t, setting.QueueSettings{BatchLength: 3, MaxWorkers: 1})
	})
	t.Run("4/5", func(t *testing.T) {
		test(t, setting.QueueSettings{BatchLength: 4, MaxWorkers: 5})
	})
}

func TestWorkerPoolQueuePushAfterShutdown(t *testing.T) {
	q, err := NewWorkerPoolQueueWithContext(context.Background(), "test-shutdown", setting.QueueSettings{Type: "channel"}, func(items ...string) []string { return nil })
	require.NoError(t, err)
	stop := runWorkerPoolQueue(q)
	stop()
	assert.Error(t, q.Push("late"))
}

func TestWorkerPoolQueueUnknownType(t *testing.T) {
	_, err := NewWorkerPoolQueueWithContext(context.Background(), "test-unknown", setting.QueueSettings{Type: "level"}, func(items ...string) []string { return nil })
	assert.Error(t, err)
}

func TestWorkerPoolQueueRedis(t *testing.T) {
	connStr := os.Getenv("TEST_REDIS_SERVER")
	if connStr == "" {
		t.Skip("TEST_REDIS_SERVER is not set")
	}
	var mu sync.Mutex
	var got []string
	q, err := NewWorkerPoolQueueWithContext(context.Background(), "test-redis", setting.QueueSettings{Type: "redis", ConnStr: connStr, Length: 10, BatchLength: 2, MaxWorkers: 1}, func(items ...string) []string {
		mu.Lock()
		got = append(got, items...)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, q.baseQueue.RemoveAll(context.Background()))
	stop := runWorkerPoolQueue(q)
	defer stop()
	require.NoError(t, q.Push("a"))
	require.NoError(t, q.Push("b"))
	require.NoError(t, q.FlushWithContext(context.Background(), 5*time.Second))
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b"}, got)
}
