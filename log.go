// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package main

import (
	"fmt"

	"go.uber.org/zap"
)

// baseLogger is the process-wide zap logger all Engine instances derive
// their per-run logger from. Tests that don't care about log output may
// swap it for zap.NewNop() via SetBaseLogger.
var baseLogger = mustNewLogger()

func mustNewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails on misconfigured sinks, which cannot
		// happen with the default config; a nop logger is a safe fallback.
		return zap.NewNop()
	}
	return l
}

// SetBaseLogger replaces the logger new Engines derive their run logger
// from. Must be called before NewEngine.
func SetBaseLogger(l *zap.Logger) {
	baseLogger = l
}

// logf logs a formatted simulation message tagged with the simulated time
// and the emitting entity's id, e.g. "imsi:1/bid:2".
func logf(now Clock, id string, sugar *zap.SugaredLogger, format string, a ...any) {
	sugar.Infof("%s [%s]: %s", now, id, fmt.Sprintf(format, a...))
}
