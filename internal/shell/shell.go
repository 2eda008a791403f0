// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell starts the user's real shell once a login is accepted.
//
// The shell replaces the secsh process. Files secsh opened, the log file
// included, are close-on-exec and are not inherited.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

const (
	// ShellsFile lists the login shells permitted on the system.
	ShellsFile = "/etc/shells"

	// OriginEnv is set to the login's origin before the shell starts. Its
	// presence tells a nested secsh that the session was already admitted.
	OriginEnv = "SECSH_FROM_IP"
)

// ErrNotListed is returned by CheckShells for a shell missing from the
// shells file.
var ErrNotListed = errors.New("shell is not listed in " + ShellsFile)

// CheckShells reports whether shell is listed in the file at path. Blank
// lines and '#' comments are skipped. An unreadable file is logged and
// the check passes, so that a system without one still admits logins.
func CheckShells(logger *slog.Logger, path, shell string) error {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("cannot read shells file, skipping check", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == shell {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn("error reading shells file, skipping check", "path", path, "error", err)
		return nil
	}
	return fmt.Errorf("%s: %w", shell, ErrNotListed)
}

// Launch describes the process that replaces secsh.
type Launch struct {
	// Path is the shell executable.
	Path string
	// Argv0 is the name the shell sees itself invoked as.
	Argv0 string
	// ShellArgs come from configuration and precede Passthrough.
	ShellArgs []string
	// Passthrough are the arguments secsh was given other than -c.
	Passthrough []string
	// Exec is set when the shell should run Command via -c.
	Exec    bool
	Command string
	// Origin is exported as OriginEnv.
	Origin string
}

// Argv returns the full argument vector.
func (l Launch) Argv() []string {
	argv := make([]string, 0, 1+len(l.ShellArgs)+len(l.Passthrough)+2)
	argv = append(argv, l.Argv0)
	argv = append(argv, l.ShellArgs...)
	argv = append(argv, l.Passthrough...)
	if l.Exec {
		argv = append(argv, "-c", l.Command)
	}
	return argv
}

// Env returns env with OriginEnv set to the origin, replacing any value
// already present.
func (l Launch) Env(env []string) []string {
	out := make([]string, 0, len(env)+1)
	prefix := OriginEnv + "="
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+l.Origin)
}

// Exec replaces the current process with the shell. It only returns on
// failure.
func Exec(logger *slog.Logger, l Launch) error {
	if !filepath.IsAbs(l.Path) {
		return fmt.Errorf("shell %q is not an absolute path", l.Path)
	}
	argv := l.Argv()
	logger.Debug("executing shell", "path", l.Path, "argc", len(argv), "exec", l.Exec)

	if err := unix.Exec(l.Path, argv, l.Env(os.Environ())); err != nil {
		return fmt.Errorf("exec %s: %w", l.Path, err)
	}
	return nil
}
