// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package timeutil

import (
	"sync/atomic"
	"time"
)

// TimeStamp defines a timestamp
type TimeStamp int64

var (
	mock atomic.Int64

	// Used for IsZero, to check if timestamp is the zero time instant.
	timeZeroUnix = time.Time{}.Unix()
)

// MockSet sets the time to a mocked time.Time
func MockSet(now time.Time) func() {
	mock.Store(now.Unix())
	return MockUnset
}

// MockUnset will unset the mocked time.Time
func MockUnset() {
	mock.Store(0)
}

// TimeStampNow returns now int64
func TimeStampNow() TimeStamp {
	if m := mock.Load(); m != 0 {
		return TimeStamp(m)
	}
	return TimeStamp(time.Now().Unix())
}

// FromTime converts a time.Time into a TimeStamp, the zero time becomes 0
func FromTime(t time.Time) TimeStamp {
	if t.IsZero() {
		return 0
	}
	return TimeStamp(t.Unix())
}

// FromTimePtr converts a *time.Time into a TimeStamp, nil becomes 0
func FromTimePtr(t *time.Time) TimeStamp {
	if t == nil {
		return 0
	}
	return FromTime(*t)
}

// Add adds seconds and return sum
func (ts TimeStamp) Add(seconds int64) TimeStamp {
	return ts + TimeStamp(seconds)
}

// AddDuration adds time.Duration and return sum
func (ts TimeStamp) AddDuration(interval time.Duration) TimeStamp {
	return ts + TimeStamp(interval/time.Second)
}

// AsTime convert timestamp as time.Time in UTC
func (ts TimeStamp) AsTime() time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

// AsTimePtr convert timestamp as *time.Time, the zero timestamp becomes nil
func (ts TimeStamp) AsTimePtr() *time.Time {
	if ts.IsZero() {
		return nil
	}
	tm := ts.AsTime()
	return &tm
}

// Format formats timestamp as given format
func (ts TimeStamp) Format(f string) string {
	return ts.AsTime().Format(f)
}

// IsZero is zero time
func (ts TimeStamp) IsZero() bool {
	return int64(ts) == 0 || int64(ts) == timeZeroUnix
}
