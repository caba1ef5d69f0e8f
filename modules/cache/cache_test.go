// Copyright 2021 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoQueueCache(t *testing.T) {
	c, err := NewTwoQueueCache[string](10, time.Hour)
	require.NoError(t, err)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", "1")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	c.Remove("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Put("b", "2")
	c.Flush()
	assert.Zero(t, c.Len())
}

func TestTwoQueueCacheExpiry(t *testing.T) {
	c, err := NewTwoQueueCache[int](10, time.Nanosecond)
	require.NoError(t, err)
	c.Put("a", 1)
	time.Sleep(time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c, err := NewTwoQueueCache[string](10, 0)
	require.NoError(t, err)

	calls := 0
	load := func() (string, error) {
		calls++
		return "value", nil
	}
	for range 3 {
		v, err := GetOrLoad(c, "k", load)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	}
	assert.Equal(t, 1, calls)

	_, err = GetOrLoad(c, "bad", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok)

	v, err := GetOrLoad[string](nil, "k", load)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 2, calls)
}
