package poa

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	acceptedCounter   = metrics.NewRegisteredCounter("poa/headers/accepted", nil)
	rejectedCounter   = metrics.NewRegisteredCounter("poa/headers/rejected", nil)
	incompleteCounter = metrics.NewRegisteredCounter("poa/headers/incomplete", nil)

	proposedCounter = metrics.NewRegisteredCounter("poa/proposals/built", nil)
	skippedCounter  = metrics.NewRegisteredCounter("poa/proposals/skipped", nil)

	snapshotTimer     = metrics.NewRegisteredTimer("poa/snapshot/derive", nil)
	snapshotReplayed  = metrics.NewRegisteredCounter("poa/snapshot/replayed", nil)
	snapshotPersisted = metrics.NewRegisteredCounter("poa/snapshot/persisted", nil)
)
