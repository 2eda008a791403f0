// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli holds the terminal-facing parts of secsh.
//
// # Key Types
//
//   - Args: the login-shell command line (ParseArgs)
//   - Prompter: line input for the authenticators
//   - Failure: a reason to exit, with its exit code
//   - Presenter: the single top-level failure handler
//
// # Exit Codes
//
//   - 1: the shell could not be executed
//   - 2: bad arguments
//   - 3: configuration or log setup failed
//   - 4: the login was refused
//
// # Usage
//
//	args, err := cli.ParseArgs(os.Args)
//	if err != nil {
//	    os.Exit(p.Fail(cli.UsageFailure(err)))
//	}
package cli
