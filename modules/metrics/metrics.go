// Copyright 2018 The Gitea Authors. All rights reserved.
// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taiga_"

var (
	// Mutations counts applied mutations by item kind, operation and error kind ("ok" on success)
	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "mutations_total",
		Help: "Number of mutations by kind, operation and result",
	}, []string{"kind", "op", "result"})

	// OCCConflicts counts updates refused because they overlap a concurrent edit
	OCCConflicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "occ_conflicts_total",
		Help: "Number of stale updates refused",
	}, []string{"kind"})

	// OCCMerges counts stale updates accepted because their fields were untouched
	OCCMerges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "occ_merges_total",
		Help: "Number of stale updates merged",
	}, []string{"kind"})

	// CascadeWrites counts rows written by the cascade rules
	CascadeWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "cascade_writes_total",
		Help: "Number of derived writes by item kind",
	}, []string{"kind"})

	// ImportedEntities counts rows materialized by importers
	ImportedEntities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "imported_entities_total",
		Help: "Number of imported entities by source and kind",
	}, []string{"source", "kind"})

	// ImportFailures counts entities skipped by importers
	ImportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: namespace + "import_failures_total",
		Help: "Number of imported entities skipped after an error",
	}, []string{"source", "kind"})

	// MailsQueued counts notification mails handed to the mail queue
	MailsQueued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: namespace + "mails_queued_total",
		Help: "Number of notification mails queued",
	})
)

func init() {
	prometheus.MustRegister(Mutations, OCCConflicts, OCCMerges, CascadeWrites, ImportedEntities, ImportFailures, MailsQueued)
}
