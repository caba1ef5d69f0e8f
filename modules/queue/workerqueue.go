// Copyright 2023 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/json"
	"github.com/taigaio/taiga-back-sub001/modules/log"
	"github.com/taigaio/taiga-back-sub001/modules/setting"
)

// HandlerFuncT handles a batch of items, the unhandled items are pushed back to the queue
type HandlerFuncT[T any] func(...T) (unhandled []T)

const batchCollectTime = 20 * time.Millisecond

// WorkerPoolQueue is a queue that uses a pool of workers to process items
// It can use different underlying (base) queue types
type WorkerPoolQueue[T any] struct {
	ctxRun       context.Context
	ctxRunCancel context.CancelFunc

	shutdownDone chan struct{}

	name       string
	baseConfig *BaseConfig
	baseQueue  baseQueue

	batchChan chan []T
	handler   HandlerFuncT[T]

	batchLength  int
	workerMaxNum int

	// items pushed by this process and not yet handled
	pending atomic.Int64
	running atomic.Bool
}

// NewWorkerPoolQueueWithContext creates a queue named by name, its settings come from [queue.<name>]
func NewWorkerPoolQueueWithContext[T any](ctx context.Context, name string, queueSetting setting.QueueSettings, handler HandlerFuncT[T]) (*WorkerPoolQueue[T], error) {
	if handler == nil {
		return nil, fmt.Errorf("queue %s has no handler", name)
	}
	if queueSetting.BatchLength <= 0 {
		queueSetting.BatchLength = 1
	}
	if queueSetting.MaxWorkers <= 0 {
		queueSetting.MaxWorkers = 1
	}
	if queueSetting.Length <= 0 {
		queueSetting.Length = 100
	}

	w := &WorkerPoolQueue[T]{
		name:         name,
		baseConfig:   toBaseConfig(name, queueSetting),
		handler:      handler,
		batchLength:  queueSetting.BatchLength,
		workerMaxNum: queueSetting.MaxWorkers,
		shutdownDone: make(chan struct{}),
	}
	w.ctxRun, w.ctxRunCancel = context.WithCancel(ctx)

	var err error
	switch queueSetting.Type {
	case "redis":
		w.baseQueue, err = newBaseRedisSimple(w.baseConfig)
	case "channel", "":
		w.baseQueue, err = newBaseChannelSimple(w.baseConfig)
	default:
		err = fmt.Errorf("unknown queue type %q", queueSetting.Type)
	}
	if err != nil {
		w.ctxRunCancel()
		return nil, err
	}
	w.batchChan = make(chan []T)
	log.Debug("Created queue %q of type %q with %d workers", name, queueSetting.Type, w.workerMaxNum)
	return w, nil
}

// Name returns the name of the queue
func (q *WorkerPoolQueue[T]) Name() string {
	return q.name
}

// Push adds an item to the queue, it may block for a while and then returns an error if the queue is full
func (q *WorkerPoolQueue[T]) Push(data T) error {
	if q.ctxRun.Err() != nil {
		return fmt.Errorf("queue %s is shut down", q.name)
	}
	bs, err := json.Marshal(data)
	if err != nil {
		return err
	}
	q.pending.Add(1)
	if err := q.baseQueue.PushItem(q.ctxRun, bs); err != nil {
		q.pending.Add(-1)
		return err
	}
	return nil
}

// Len returns the number of items in the base queue
func (q *WorkerPoolQueue[T]) Len() int {
	n, err := q.baseQueue.Len(q.ctxRun)
	if err != nil {
		log.Error("Failed to get number of items in queue %q: %v", q.name, err)
	}
	return n
}

// FlushWithContext waits until all items pushed by this process are handled
func (q *WorkerPoolQueue[T]) FlushWithContext(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for q.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.shutdownDone:
			return fmt.Errorf("queue %s is shut down", q.name)
		case <-ticker.C:
		}
	}
	return nil
}

// Run starts the workers and blocks until the queue is shut down
func (q *WorkerPoolQueue[T]) Run() {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	defer close(q.shutdownDone)

	wg := sync.WaitGroup{}
	for i := 0; i < q.workerMaxNum; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range q.batchChan {
				q.doWorkerHandle(batch)
			}
		}()
	}

	q.doRun()
	close(q.batchChan)
	wg.Wait()
	if err := q.baseQueue.Close(); err != nil {
		log.Error("Failed to close queue %q: %v", q.name, err)
	}
}

func (q *WorkerPoolQueue[T]) doRun() {
	for {
		first, err := q.baseQueue.PopItem(q.ctxRun)
		if err != nil {
			if q.ctxRun.Err() == nil {
				log.Error("Failed to pop item from queue %q: %v", q.name, err)
			}
			return
		}
		batch := q.appendUnmarshalled(nil, first)

		collectCtx, cancel := context.WithTimeout(q.ctxRun, batchCollectTime)
		for len(batch) < q.batchLength {
			data, err := q.baseQueue.PopItem(collectCtx)
			if err != nil {
				break
			}
			batch = q.appendUnmarshalled(batch, data)
		}
		cancel()

		if len(batch) == 0 {
			continue
		}
		select {
		case q.batchChan <- batch:
		case <-q.ctxRun.Done():
			log.Warn("Queue %q is shutting down with %d items unhandled", q.name, len(batch))
			return
		}
	}
}

func (q *WorkerPoolQueue[T]) appendUnmarshalled(batch []T, data []byte) []T {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		q.pending.Add(-1)
		log.Error("Failed to unmarshal item from queue %q: %v", q.name, err)
		return batch
	}
	return append(batch, v)
}

func (q *WorkerPoolQueue[T]) doWorkerHandle(batch []T) {
	defer func() {
		if err := recover(); err != nil {
			q.pending.Add(-int64(len(batch)))
			log.Error("Recovered from panic in queue %q handler: %v", q.name, err)
		}
	}()
	unhandled := q.handler(batch...)
	// requeue before releasing the batch so a concurrent flush never sees zero in between
	for _, item := range unhandled {
		if err := q.Push(item); err != nil {
			log.Error("Failed to requeue item for queue %q: %v", q.name, err)
		}
	}
	q.pending.Add(-int64(len(batch)))
}

// ShutdownWait stops the queue and waits for the workers to finish their current batch
func (q *WorkerPoolQueue[T]) ShutdownWait(timeout time.Duration) {
	q.ctxRunCancel()
	if !q.running.Load() {
		return
	}
	select {
	case <-q.shutdownDone:
	case <-time.After(timeout):
		log.Warn("Queue %q did not shut down within %v", q.name, timeout)
	}
}
