// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/secsh/internal/config"
	"github.com/jeranaias/secsh/internal/otp"
)

// totpAuth checks time-based codes from an authenticator app. A nil
// generator means the authenticator is disabled.
type totpAuth struct {
	gen      *otp.Generator
	prompter Prompter
	now      func() time.Time
	logger   *slog.Logger
}

func newTOTP(cfg *config.Config, deps Deps, logger *slog.Logger) *totpAuth {
	t := &totpAuth{prompter: deps.Prompter, now: deps.Now, logger: logger}
	if cfg.TOTPSecret == "" {
		return t
	}

	key, err := otp.DecodeSecret(cfg.TOTPSecret)
	if err != nil {
		logger.Error("cannot decode totp_secret, authenticator disabled", "error", err)
		return t
	}

	alg, err := otp.ParseAlgorithm(cfg.TOTPHash)
	if err != nil {
		logger.Error("unsupported totp_hash, using SHA1", "error", err)
	}

	gen, err := otp.NewGenerator(key, otp.Params{
		Digits:    cfg.TOTPDigits,
		Step:      cfg.TOTPStep(),
		Algorithm: alg,
	})
	if err != nil {
		logger.Error("invalid TOTP parameters, authenticator disabled", "error", err)
		return t
	}
	t.gen = gen
	return t
}

func (t *totpAuth) verify(code string) bool {
	ok, err := t.gen.Verify(code, t.now())
	if err != nil {
		t.logger.Warn("TOTP verification failed", "error", err)
		return false
	}
	return ok
}

func (t *totpAuth) login(ctx context.Context) Decision {
	if t.gen == nil || t.prompter == nil {
		return Cancel
	}

	d, exhausted := tries(ctx, MaxTries, func(int) (step, Decision) {
		input, err := t.prompter.Prompt(ctx, "Enter your TOTP: ")
		if err != nil {
			t.logger.Warn("cannot read TOTP", "error", err)
			return settle, Cancel
		}
		input = strings.TrimSpace(input)
		if input == "" {
			return settle, Cancel
		}
		if t.verify(input) {
			return settle, Accept
		}
		t.logger.Warn("wrong TOTP")
		return retry, Cancel
	})
	if exhausted {
		t.logger.Warn("maximum number of retries exceeded")
	}
	return d
}

func (t *totpAuth) exec(cmd string) (Decision, string) {
	if t.gen == nil {
		return Cancel, cmd
	}
	code, rest, ok := SplitPrefix(cmd, t.gen.Digits())
	if !ok {
		return Cancel, cmd
	}
	if !t.verify(code) {
		t.logger.Info("command does not start with a valid TOTP")
		return Cancel, cmd
	}
	return Accept, rest
}
