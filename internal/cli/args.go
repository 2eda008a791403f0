// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Login-shell argument parsing for secsh.
//
// secsh is started by login(1), sshd or su as the user's shell, so it must
// accept whatever a POSIX shell would be given and pass it through to the
// real shell. The only argument it interprets is the first -c, whose
// operand is the command for exec mode.

package cli

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrMissingCommand is returned when -c is the last argument.
var ErrMissingCommand = errors.New("-c: option requires an argument")

// Args is the parsed command line.
type Args struct {
	// Argv0 is the name secsh was invoked as.
	Argv0 string
	// Exec is set when -c was given.
	Exec bool
	// Command is the -c operand.
	Command string
	// Passthrough holds every other argument, in order.
	Passthrough []string
	// Version is set for a lone --version.
	Version bool
}

// LoginShell reports whether secsh was invoked as a login shell, which is
// signalled by a leading '-' in argv[0].
func (a Args) LoginShell() bool {
	return strings.HasPrefix(a.Argv0, "-")
}

// ParseArgs parses os.Args. The first -c takes the next argument as the
// command; any later -c is passed through untouched.
//
// Example:
//
//	ParseArgs([]string{"-secsh", "-l", "-c", "ls -l", "x"})
//	// Argv0 "-secsh", Exec true, Command "ls -l", Passthrough ["-l", "x"]
func ParseArgs(argv []string) (Args, error) {
	var a Args
	if len(argv) == 0 {
		return a, nil
	}
	a.Argv0 = argv[0]
	rest := argv[1:]

	if len(rest) == 1 && rest[0] == "--version" {
		a.Version = true
		return a, nil
	}

	a.Passthrough = make([]string, 0, len(rest))
	for i := 0; i < len(rest); i++ {
		if rest[i] == "-c" && !a.Exec {
			if i+1 >= len(rest) {
				return a, ErrMissingCommand
			}
			a.Exec = true
			a.Command = rest[i+1]
			i++
			continue
		}
		a.Passthrough = append(a.Passthrough, rest[i])
	}
	return a, nil
}

// ShellArgv0 returns argv[0] for the real shell: its base name, prefixed
// with '-' when secsh itself was started as a login shell.
func (a Args) ShellArgv0(shell string) string {
	if a.LoginShell() {
		return "-" + filepath.Base(shell)
	}
	return shell
}
