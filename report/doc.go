/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package report renders run summaries as markdown tables and exports them
// to a Prometheus Pushgateway.
package report
