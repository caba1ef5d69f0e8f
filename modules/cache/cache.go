// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cache

import (
	"sync"
	"time"

	"github.com/taigaio/taiga-back-sub001/modules/setting"

	lru "github.com/hashicorp/golang-lru/v2"
)

type memoryItem[V any] struct {
	val     V
	created time.Time
}

// TwoQueueCache is a 2Q LRU cache whose items expire after a fixed ttl, a ttl <= 0 never expires
type TwoQueueCache[V any] struct {
	lock  sync.Mutex
	cache *lru.TwoQueueCache[string, *memoryItem[V]]
	ttl   time.Duration
}

// NewTwoQueueCache creates a cache holding at most size items
func NewTwoQueueCache[V any](size int, ttl time.Duration) (*TwoQueueCache[V], error) {
	c, err := lru.New2Q[string, *memoryItem[V]](size)
	if err != nil {
		return nil, err
	}
	return &TwoQueueCache[V]{cache: c, ttl: ttl}, nil
}

func (c *TwoQueueCache[V]) hasExpired(item *memoryItem[V]) bool {
	return c.ttl > 0 && time.Since(item.created) >= c.ttl
}

// Get gets the cached value of key
func (c *TwoQueueCache[V]) Get(key string) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	item, ok := c.cache.Get(key)
	if !ok || c.hasExpired(item) {
		c.cache.Remove(key)
		var zero V
		return zero, false
	}
	return item.val, true
}

// Put puts the value of key into the cache
func (c *TwoQueueCache[V]) Put(key string, val V) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Add(key, &memoryItem[V]{val: val, created: time.Now()})
}

// Remove deletes the cached value of key
func (c *TwoQueueCache[V]) Remove(key string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Remove(key)
}

// Flush deletes all cached data
func (c *TwoQueueCache[V]) Flush() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.cache.Purge()
}

// Len returns the number of cached items, expired ones included
func (c *TwoQueueCache[V]) Len() int {
	return c.cache.Len()
}

// GetOrLoad returns the cached value of key, a miss calls load and caches its result.
// A nil cache always loads.
func GetOrLoad[V any](c *TwoQueueCache[V], key string, load func() (V, error)) (V, error) {
	if c == nil {
		return load()
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}

// DisplayNames caches the display names of users and catalog entries rendered in history values
var DisplayNames *TwoQueueCache[string]

// Init creates the caches from the settings, a disabled cache stays nil
func Init() error {
	if !setting.CacheService.Enabled {
		DisplayNames = nil
		return nil
	}
	var err error
	DisplayNames, err = NewTwoQueueCache[string](setting.CacheService.Size, setting.CacheService.TTL)
	return err
}
