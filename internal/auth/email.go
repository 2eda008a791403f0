// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/jeranaias/secsh/internal/challenge"
	"github.com/jeranaias/secsh/internal/config"
	"github.com/jeranaias/secsh/internal/mail"
)

// EmailCodeLength is the width of the mailed code spliced onto a command.
const EmailCodeLength = 6

// emailAuth mails a one-time code to the configured address.
//
// Interactively the user first proves they know the address, then types
// the mailed code. Non-interactively the code has to cross two process
// invocations: running `-c <address>` mails a code and stores it, and a
// later `-c <code><command>` redeems it.
type emailAuth struct {
	address  string
	enabled  bool
	mailer   Mailer
	store    ChallengeStore
	prompter Prompter
	newCode  func() (uint32, error)
	logger   *slog.Logger
}

func newEmail(cfg *config.Config, deps Deps, logger *slog.Logger) *emailAuth {
	e := &emailAuth{
		address:  cfg.Email,
		mailer:   deps.Mailer,
		store:    deps.Challenges,
		prompter: deps.Prompter,
		newCode:  deps.NewCode,
		logger:   logger,
	}
	if cfg.Email == "" {
		return e
	}

	switch {
	case cfg.MailHost == "":
		logger.Error("email set but mail_host is not, authenticator disabled")
	case cfg.MailPort == 0:
		logger.Error("email set but mail_port is not, authenticator disabled")
	case cfg.MailFrom == "":
		logger.Error("email set but mail_from is not, authenticator disabled")
	case deps.Mailer == nil:
		logger.Error("no mailer available, authenticator disabled")
	default:
		e.enabled = true
	}
	return e
}

// Shadow returns the address with the second half of the local part masked
// and that hidden half. It returns ok=false for an address without '@'.
//
//	Shadow("alice@example.com") = "al***@example.com", "ice", true
func Shadow(address string) (shadowed, hidden string, ok bool) {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return "", "", false
	}
	half := at / 2
	return address[:half] + strings.Repeat("*", at-half) + address[at:], address[half:at], true
}

func (e *emailAuth) send(ctx context.Context, code uint32) error {
	return e.mailer.Send(ctx, mail.CodeMessage(e.address, code))
}

func (e *emailAuth) login(ctx context.Context) Decision {
	if !e.enabled || e.prompter == nil {
		return Cancel
	}

	shadowed, hidden, ok := Shadow(e.address)
	if !ok {
		e.logger.Warn("configured email has no '@'")
		return Cancel
	}

	// Phase 1: the user proves they know the address.
	d, exhausted := tries(ctx, MaxTries, func(int) (step, Decision) {
		input, err := e.prompter.Prompt(ctx, "Enter your email matching "+shadowed+": ")
		if err != nil {
			e.logger.Warn("cannot read email", "error", err)
			return settle, Cancel
		}
		input = strings.TrimRightFunc(input, unicode.IsSpace)
		switch {
		case input == "":
			return settle, Cancel
		case input == hidden || input == e.address:
			return settle, Accept
		}
		e.logger.Warn("wrong email", "input", input)
		return retry, Cancel
	})
	if exhausted {
		e.logger.Warn("maximum number of retries exceeded")
		return Reject
	}
	if d != Accept {
		return d
	}

	// Phase 2: the user types the mailed code. 0 resends it.
	code, err := e.newCode()
	if err != nil {
		e.logger.Warn("cannot generate code", "error", err)
		return Cancel
	}
	if err := e.send(ctx, code); err != nil {
		e.logger.Warn("cannot send email", "error", err)
		return Cancel
	}

	d, exhausted = tries(ctx, MaxTries, func(int) (step, Decision) {
		input, err := e.prompter.Prompt(ctx, "Enter the code sent to your email address, 0 to resend: ")
		if err != nil {
			e.logger.Warn("cannot read code", "error", err)
			return settle, Cancel
		}
		n, ok := parseCode(input)
		switch {
		case ok && n == 0:
			if err := e.send(ctx, code); err != nil {
				e.logger.Warn("cannot send email", "error", err)
				return settle, Cancel
			}
			return again, Cancel
		case ok && n == uint64(code):
			return settle, Accept
		}
		e.logger.Warn("wrong login code")
		return retry, Cancel
	})
	if exhausted {
		e.logger.Warn("maximum number of retries exceeded")
	}
	return d
}

func (e *emailAuth) exec(ctx context.Context, cmd string) (Decision, string) {
	if !e.enabled || e.store == nil {
		return Cancel, cmd
	}

	if cmd == e.address {
		e.issue(ctx)
		// The command was only a request for a code. Refuse to run it.
		return Reject, cmd
	}

	rec, err := e.store.Load()
	if errors.Is(err, challenge.ErrNoChallenge) {
		e.logger.Debug("no pending email code", "reason", err)
		return Cancel, cmd
	}
	if err != nil {
		e.logger.Warn("cannot read pending email code", "error", err)
		return Cancel, cmd
	}

	presented, rest, ok := SplitPrefix(cmd, EmailCodeLength)
	if !ok {
		return Cancel, cmd
	}
	if !equalCode(presented, rec.Code) {
		e.logger.Warn("command does not start with the pending email code")
		return Cancel, cmd
	}

	if err := e.store.Remove(); err != nil {
		e.logger.Warn("cannot remove redeemed email code", "error", err)
	}
	return Accept, rest
}

// issue mails a fresh code and records it for the next invocation. Failures
// are logged; the caller rejects the current invocation either way.
func (e *emailAuth) issue(ctx context.Context) {
	code, err := e.newCode()
	if err != nil {
		e.logger.Warn("cannot generate code", "error", err)
		return
	}
	if err := e.send(ctx, code); err != nil {
		e.logger.Warn("cannot send email", "error", err)
	}
	if err := e.store.Save(strconv.FormatUint(uint64(code), 10)); err != nil {
		e.logger.Warn("cannot store email code", "error", err)
		return
	}
	e.logger.Info("email code issued for exec mode")
}

// parseCode parses a line of ASCII digits, ignoring surrounding whitespace.
func parseCode(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
