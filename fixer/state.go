/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package fixer

// State is a stage of a run.
type State int

const (
	StateConfiguring State = iota
	StateClientsReady
	StateFetchingFindings
	StateProcessing
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "configuring"
	case StateClientsReady:
		return "clients-ready"
	case StateFetchingFindings:
		return "fetching-findings"
	case StateProcessing:
		return "processing"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
