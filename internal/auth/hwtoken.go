// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jeranaias/secsh/internal/yubico"
)

// minLoginOTPLength is the shortest interactive input worth sending for
// verification: the identifier plus at least two characters.
const minLoginOTPLength = yubico.IDLength + 2

// hardwareToken checks one-time passwords from a Yubikey. An empty id
// means the authenticator is disabled.
type hardwareToken struct {
	id       string
	verifier Verifier
	prompter Prompter
	logger   *slog.Logger
}

func newHardwareToken(yubicoID string, deps Deps, logger *slog.Logger) *hardwareToken {
	h := &hardwareToken{verifier: deps.Verifier, prompter: deps.Prompter, logger: logger}
	if yubicoID == "" {
		return h
	}
	if len(yubicoID) < yubico.IDLength {
		logger.Error("yubico_id is shorter than 12 characters, authenticator disabled")
		return h
	}
	if deps.Verifier == nil {
		logger.Error("no OTP verifier available, authenticator disabled")
		return h
	}
	h.id = yubicoID[:yubico.IDLength]
	return h
}

func (h *hardwareToken) enabled() bool { return h.id != "" }

// check asks the validation service and turns its answer into a decision.
// Only an explicit positive verdict accepts; everything else cancels.
func (h *hardwareToken) check(ctx context.Context, otp string) Decision {
	ok, err := h.verifier.Verify(ctx, otp)
	if err != nil {
		h.logger.Warn("OTP verification error", "error", err)
		return Cancel
	}
	if !ok {
		h.logger.Warn("OTP not accepted by validation service")
		return Cancel
	}
	return Accept
}

func (h *hardwareToken) login(ctx context.Context) Decision {
	if !h.enabled() || h.prompter == nil {
		return Cancel
	}

	input, err := h.prompter.Prompt(ctx, "Enter your YubiOTP: ")
	if err != nil {
		h.logger.Warn("cannot read OTP", "error", err)
		return Cancel
	}
	input = strings.TrimSpace(input)

	switch {
	case input == "":
		return Cancel
	case len(input) < minLoginOTPLength:
		h.logger.Warn("malformed OTP")
		return Reject
	case input[:yubico.IDLength] != h.id:
		h.logger.Warn("OTP from a foreign token", "token", input[:yubico.IDLength])
		return Reject
	}
	return h.check(ctx, input)
}

func (h *hardwareToken) exec(ctx context.Context, cmd string) (Decision, string) {
	if !h.enabled() {
		return Cancel, cmd
	}
	otp, rest, ok := SplitPrefix(cmd, yubico.OTPLength)
	if !ok {
		return Cancel, cmd
	}
	if otp[:yubico.IDLength] != h.id {
		return Cancel, cmd
	}
	if h.check(ctx, otp) != Accept {
		return Cancel, cmd
	}
	return Accept, rest
}
