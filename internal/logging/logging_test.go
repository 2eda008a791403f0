// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Level Parsing Tests
// ============================================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"Warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"off", LevelOff, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

// ============================================================================
// Sink Tests
// ============================================================================

func TestNew_IndependentThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secsh.log")
	var console bytes.Buffer

	l, err := New(Options{
		File:         path,
		FileLevel:    slog.LevelDebug,
		Console:      &console,
		ConsoleLevel: slog.LevelError,
	})
	require.NoError(t, err)

	l.Debug("debug detail")
	l.Info("accepted", "by", "totp")
	l.Error("config failure")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	file := string(data)

	assert.Contains(t, file, "debug detail")
	assert.Contains(t, file, "accepted")
	assert.Contains(t, file, "config failure")
	assert.Contains(t, file, "session="+l.Session)

	assert.NotContains(t, console.String(), "accepted")
	assert.NotContains(t, console.String(), "debug detail")
	assert.Contains(t, console.String(), "config failure")
	assert.NotContains(t, console.String(), "session=")
	assert.NotContains(t, console.String(), "time=")
}

func TestNew_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secsh.log")
	require.NoError(t, os.WriteFile(path, []byte("previous line\n"), 0o600))

	l, err := New(Options{File: path, FileLevel: slog.LevelInfo, ConsoleLevel: LevelOff})
	require.NoError(t, err)
	l.Info("next")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "previous line", lines[0])
}

func TestNew_SessionID(t *testing.T) {
	var a, b bytes.Buffer
	la, err := New(Options{Console: &a, ConsoleLevel: slog.LevelInfo})
	require.NoError(t, err)
	lb, err := New(Options{Console: &b, ConsoleLevel: slog.LevelInfo})
	require.NoError(t, err)

	_, err = uuid.Parse(la.Session)
	assert.NoError(t, err)
	assert.NotEqual(t, la.Session, lb.Session)

	fixed, err := New(Options{Session: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", fixed.Session)
}

func TestNew_UnopenableFileStillLogsToConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Options{
		File:         filepath.Join(t.TempDir(), "missing", "dir", "secsh.log"),
		FileLevel:    slog.LevelInfo,
		Console:      &console,
		ConsoleLevel: slog.LevelInfo,
	})
	require.Error(t, err)
	require.NotNil(t, l)

	l.Info("still here")
	assert.Contains(t, console.String(), "still here")
	assert.NoError(t, l.Close())
}

func TestNew_OffDisablesSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secsh.log")
	var console bytes.Buffer
	l, err := New(Options{File: path, FileLevel: LevelOff, Console: &console, ConsoleLevel: LevelOff})
	require.NoError(t, err)

	l.Error("nobody hears this")
	assert.Empty(t, console.String())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestTee_WithAttrsReachesEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := Tee(
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	log := slog.New(h).With("kind", "email")

	log.Info("only a")
	log.Warn("both")

	assert.Contains(t, a.String(), "only a")
	assert.Contains(t, a.String(), "kind=email")
	assert.NotContains(t, b.String(), "only a")
	assert.Contains(t, b.String(), "both")
	assert.Contains(t, b.String(), "kind=email")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.Error("dropped")
}
