// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger used for one secsh invocation.
//
// Records go to two places with independent thresholds: the configured log
// file, which should capture everything an administrator needs, and stderr,
// which the connecting user sees and therefore defaults to errors only.
// Every record carries a per-invocation session id so the two halves of a
// non-interactive email login can be told apart from other logins.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// LevelOff disables a sink entirely.
const LevelOff = slog.Level(100)

// SessionKey is the attribute carrying the invocation id.
const SessionKey = "session"

// ParseLevel maps debug/info/warn/error/off (case insensitive) to a level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "off", "none":
		return LevelOff, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Options configures New.
type Options struct {
	// File is the log file path. Empty disables the file sink.
	File      string
	FileLevel slog.Level

	// Console receives human-facing records, normally os.Stderr.
	Console      io.Writer
	ConsoleLevel slog.Level

	// Session overrides the generated session id.
	Session string
}

// Logger is a configured logger together with the resources it holds.
type Logger struct {
	*slog.Logger
	Session string

	file *os.File
}

// Close releases the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// New opens the log file in append mode and returns a logger writing to it
// and to the console. If the file cannot be opened the console logger is
// still returned together with the error, so the caller can report it.
func New(opts Options) (*Logger, error) {
	session := opts.Session
	if session == "" {
		session = uuid.NewString()
	}

	var handlers []slog.Handler
	if opts.Console != nil && opts.ConsoleLevel < LevelOff {
		handlers = append(handlers, slog.NewTextHandler(opts.Console, &slog.HandlerOptions{
			Level:       opts.ConsoleLevel,
			ReplaceAttr: consoleAttrs,
		}))
	}

	var (
		file    *os.File
		openErr error
	)
	if opts.File != "" && opts.FileLevel < LevelOff {
		file, openErr = os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if openErr != nil {
			openErr = fmt.Errorf("failed to open log file %q: %w", opts.File, openErr)
		} else {
			handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: opts.FileLevel}))
		}
	}

	l := &Logger{
		Logger:  slog.New(Tee(handlers...)).With(SessionKey, session),
		Session: session,
		file:    file,
	}
	return l, openErr
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(Tee())
}

// consoleAttrs drops the timestamp and session from console output; the
// person at the terminal needs neither.
func consoleAttrs(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == SessionKey) {
		return slog.Attr{}
	}
	return a
}

// =============================================================================
// TEE HANDLER
// =============================================================================

type teeHandler struct {
	handlers []slog.Handler
}

// Tee returns a handler that forwards each record to every handler whose
// level admits it. With no handlers it discards everything.
func Tee(handlers ...slog.Handler) slog.Handler {
	return &teeHandler{handlers: handlers}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: next}
}
