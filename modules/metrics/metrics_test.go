// Copyright 2018 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(CascadeWrites.WithLabelValues("userstory"))
	CascadeWrites.WithLabelValues("userstory").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(CascadeWrites.WithLabelValues("userstory")), 0.0001)

	Mutations.WithLabelValues("task", "update", "ok").Add(2)
	assert.Positive(t, testutil.CollectAndCount(Mutations))
}
