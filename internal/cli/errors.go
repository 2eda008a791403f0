// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Failure handling for secsh.
//
// STANDARDIZED PATTERN:
//   - Everything below main returns errors or results; nothing exits.
//   - main maps the first failure to a *Failure and hands it to Fail once.
//   - Fail logs the detail, prints a short message, optionally pauses and
//     returns the exit code.
//
// ERROR HANDLING: Errors must not be silently ignored

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error, including a shell
	// that could not be executed
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration or log setup error
	ExitConfigError = 3
	// ExitAuthError indicates the login was refused
	ExitAuthError = 4
)

// =============================================================================
// FAILURE TYPE
// =============================================================================

// Failure is a reason to exit without starting a shell.
type Failure struct {
	Code int
	// Message is shown to the user. It must not reveal which authenticator
	// refused the login.
	Message string
	// Err is the underlying cause. It is always logged.
	Err error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// =============================================================================
// FAILURE CONSTRUCTORS
// =============================================================================

// Rejected is the failure for a login an authenticator refused.
func Rejected() *Failure {
	return &Failure{Code: ExitAuthError, Message: "Authentication rejected"}
}

// NotAccepted is the failure for a login no authenticator accepted.
func NotAccepted() *Failure {
	return &Failure{Code: ExitAuthError, Message: "No authenticator accepted the login"}
}

// ConfigFailure is the failure for an unusable configuration or log file.
// The cause is shown, since nothing has been authenticated yet and the
// user needs it to fix their configuration.
func ConfigFailure(err error) *Failure {
	return &Failure{Code: ExitConfigError, Message: fmt.Sprintf("Configuration error: %v", err), Err: err}
}

// UsageFailure is the failure for unparseable arguments.
func UsageFailure(err error) *Failure {
	return &Failure{Code: ExitUsageError, Message: fmt.Sprintf("Usage error: %v", err), Err: err}
}

// ShellFailure is the failure for a shell that could not be started.
func ShellFailure(err error) *Failure {
	return &Failure{Code: ExitGeneralError, Message: fmt.Sprintf("Cannot execute shell: %v", err), Err: err}
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Code
	}
	return ExitGeneralError
}

// =============================================================================
// TOP-LEVEL HANDLER
// =============================================================================

// Presenter shows failures to the person at the terminal.
type Presenter struct {
	// Out receives messages, normally os.Stderr.
	Out io.Writer
	// In is read by the pause, normally os.Stdin.
	In io.Reader
	// Pause waits for Enter before returning. Only set it when In is a
	// terminal; otherwise the pause would consume piped input.
	Pause  bool
	Logger *slog.Logger
}

// Fail reports f and returns its exit code.
func (p *Presenter) Fail(f *Failure) int {
	if p.Logger != nil {
		if f.Err != nil {
			p.Logger.Error(f.Message, "error", f.Err, "exit_code", f.Code)
		} else {
			p.Logger.Warn(f.Message, "exit_code", f.Code)
		}
	}

	fmt.Fprintf(p.Out, "%s %s\n", RenderConditional(ErrorStyle, "[secsh]"), f.Message)

	if p.Pause {
		if err := PauseOnExit(p.In, p.Out); err != nil && p.Logger != nil {
			p.Logger.Debug("pause interrupted", "error", err)
		}
	}
	return f.Code
}

// PauseOnExit prompts for Enter and reads exactly one line from in, so a
// terminal window that closes on exit stays readable. EOF is not an error.
func PauseOnExit(in io.Reader, out io.Writer) error {
	fmt.Fprint(out, RenderConditional(DimStyle, "Press Enter to exit"))
	defer fmt.Fprintln(out)

	// Unbuffered so that nothing after the newline is consumed.
	b := make([]byte, 1)
	for {
		n, err := in.Read(b)
		if n == 1 && b[0] == '\n' {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
