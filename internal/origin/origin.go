// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package origin determines where the current login came from.
//
// The origin is a textual network address, or "" when it cannot be
// determined (for example a local console or a reverse shell). Callers
// treat it as untrusted input.
package origin

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// SSHConnectionEnv is set by sshd to "client_ip client_port server_ip server_port".
	SSHConnectionEnv = "SSH_CONNECTION"

	// WhoPath is the utmp query tool used when SSH_CONNECTION is absent.
	WhoPath = "/usr/bin/who"

	// whoTimeout bounds the who invocation.
	// CANCELLATION: Context enables timeout and cancellation
	whoTimeout = 5 * time.Second
)

// PERFORMANCE: Pre-compiled regex (compiled once at startup)
// Matches from the first '(' to the last ')' on the line.
var whoHostRegex = regexp.MustCompile(`\((.*)\)`)

// Detector looks up the origin. The zero value is not usable; use
// NewDetector.
type Detector struct {
	getenv func(string) string
	who    func(ctx context.Context) (string, error)
	logger *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector)

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(d *Detector) { d.getenv = fn }
}

// WithWho replaces the `who -u am i` invocation.
func WithWho(fn func(ctx context.Context) (string, error)) Option {
	return func(d *Detector) { d.who = fn }
}

// NewDetector returns a Detector using the process environment and
// /usr/bin/who.
func NewDetector(logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{getenv: os.Getenv, who: runWho, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the first field of SSH_CONNECTION if set, otherwise the
// parenthesized host reported by `who -u am i`, otherwise "".
func (d *Detector) Detect(ctx context.Context) string {
	if addr := FromSSHConnection(d.getenv(SSHConnectionEnv)); addr != "" {
		return addr
	}

	out, err := d.who(ctx)
	if err != nil {
		d.logger.Debug("who -u am i failed", "error", err)
		return ""
	}
	d.logger.Debug("who -u am i", "output", out)
	return FromWho(out)
}

// FromSSHConnection returns the client address field of an SSH_CONNECTION
// value, or "" if the value is empty.
func FromSSHConnection(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// FromWho extracts the parenthesized host from `who -u am i` output.
func FromWho(out string) string {
	m := whoHostRegex.FindStringSubmatch(strings.TrimSpace(out))
	if m == nil {
		return ""
	}
	return m[1]
}

func runWho(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, whoTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, WhoPath, "-u", "am", "i").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
