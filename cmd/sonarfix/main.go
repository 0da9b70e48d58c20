/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command sonarfix fixes static-analysis findings with an AI model and
// commits the results to a working branch.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chainguard-dev/clog"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(nil).ExecuteContext(ctx); err != nil {
		clog.FatalContextf(ctx, "sonarfix: %v", err)
	}
}

// newLogger returns a text logger on stderr at the named level. Unknown
// levels fall back to info.
func newLogger(level string) *clog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
