// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"

	"github.com/jeranaias/secsh/internal/config"
)

// Authenticator is one member of the fixed authenticator set. Exactly one
// variant field is set, matching kind.
type Authenticator struct {
	kind   Kind
	logger *slog.Logger

	bypass *bypass
	origin *localOrigin
	email  *emailAuth
	totp   *totpAuth
	token  *hardwareToken
}

// Kind reports which authenticator this is.
func (a *Authenticator) Kind() Kind { return a.kind }

// newAuthenticator builds the variant for kind from the configuration.
func newAuthenticator(kind Kind, cfg *config.Config, deps Deps) *Authenticator {
	logger := deps.Logger.With("authenticator", kind.String())
	a := &Authenticator{kind: kind, logger: logger}

	switch kind {
	case KindBypass:
		a.bypass = &bypass{logger: logger}
	case KindLocalOrigin:
		a.origin = newLocalOrigin(cfg.AcceptedIPs, logger)
	case KindEmail:
		a.email = newEmail(cfg, deps, logger)
	case KindTOTP:
		a.totp = newTOTP(cfg, deps, logger)
	case KindHardwareToken:
		a.token = newHardwareToken(cfg.YubicoID, deps, logger)
	}
	return a
}

// Decide asks the authenticator for its verdict on req. In exec mode cmd is
// the command as left by earlier authenticators and the returned command
// has this authenticator's code removed; it equals cmd unless the decision
// is Accept. In login mode cmd is returned unchanged.
func (a *Authenticator) Decide(ctx context.Context, req *Request, cmd string) (Decision, string) {
	switch a.kind {
	case KindBypass:
		return a.bypass.decide(req), cmd
	case KindLocalOrigin:
		return a.origin.decide(req), cmd
	case KindEmail:
		if req.Exec {
			return a.email.exec(ctx, cmd)
		}
		return a.email.login(ctx), cmd
	case KindTOTP:
		if req.Exec {
			return a.totp.exec(cmd)
		}
		return a.totp.login(ctx), cmd
	case KindHardwareToken:
		if req.Exec {
			return a.token.exec(ctx, cmd)
		}
		return a.token.login(ctx), cmd
	}
	a.logger.Error("unknown authenticator kind", "kind", int(a.kind))
	return Cancel, cmd
}
