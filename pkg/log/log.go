// Copyright (c) 2024 Helvio Junior. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"context"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	defaultLogger     logr.Logger
	defaultLoggerOnce sync.Once
)

// Default returns the process-wide fallback logger, a console-encoded zap
// logger writing to stderr. It is built lazily on first use.
func Default() logr.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = New(0)
	})
	return defaultLogger
}

// New returns a zap-backed logr.Logger at the given verbosity. Verbosity 0
// logs info and above; higher values enable the corresponding V levels.
func New(verbosity int) logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity)) //nolint:gosec
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		// The development config only errors on invalid output paths; don't
		// fail the caller over logging.
		return logr.Discard()
	}

	return zapr.NewLogger(z)
}

// FromContextOrDefault returns a Logger from ctx. If no Logger is found, this
// returns the default logger so we at least don't accidentally discard logs.
// Prefer using this over logr.FromContextOrDiscard() at the boundary.
func FromContextOrDefault(ctx context.Context) logr.Logger {
	if logger, err := logr.FromContext(ctx); err == nil {
		return logger
	}
	return Default()
}
