// Copyright 2017 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeStampMock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	defer MockSet(fixed)()

	assert.EqualValues(t, fixed.Unix(), TimeStampNow())
	assert.Equal(t, fixed, TimeStampNow().AsTime())
}

func TestTimeStampZero(t *testing.T) {
	assert.True(t, TimeStamp(0).IsZero())
	assert.Nil(t, TimeStamp(0).AsTimePtr())
	assert.EqualValues(t, 0, FromTime(time.Time{}))
	assert.EqualValues(t, 0, FromTimePtr(nil))
	assert.EqualValues(t, 70, TimeStamp(10).AddDuration(time.Minute))
}
