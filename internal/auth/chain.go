// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log/slog"

	"github.com/jeranaias/secsh/internal/config"
)

// Result is the outcome of a chain evaluation.
type Result struct {
	// Decision is Accept, Reject, or Cancel when every authenticator
	// cancelled.
	Decision Decision
	// Command is the exec-mode command with accepted codes removed.
	Command string
	// By is the authenticator that decided, or KindNone.
	By Kind
}

// Accepted reports whether the login may proceed.
func (r Result) Accepted() bool { return r.Decision == Accept }

// Chain evaluates the authenticators in Order.
type Chain struct {
	auths  []*Authenticator
	logger *slog.Logger
}

// NewChain builds every authenticator from cfg. Authenticators whose
// configuration or collaborators are missing are built disabled and always
// cancel.
func NewChain(cfg *config.Config, deps Deps) *Chain {
	deps.fill()
	c := &Chain{logger: deps.Logger}
	for _, kind := range Order {
		c.auths = append(c.auths, newAuthenticator(kind, cfg, deps))
	}
	return c
}

// Kinds returns the evaluation order of this chain.
func (c *Chain) Kinds() []Kind {
	kinds := make([]Kind, len(c.auths))
	for i, a := range c.auths {
		kinds[i] = a.Kind()
	}
	return kinds
}

// Evaluate runs the chain for req.
//
// The first authenticator that does not cancel decides. If all cancel the
// result is Cancel, which callers must treat as a refusal. A cancelled ctx
// stops the chain with Cancel.
func (c *Chain) Evaluate(ctx context.Context, req Request) Result {
	cmd := req.Command

	for _, a := range c.auths {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("authentication interrupted", "error", err)
			return Result{Decision: Cancel, Command: req.Command, By: KindNone}
		}

		d, next := a.Decide(ctx, &req, cmd)
		switch d {
		case Accept:
			c.logger.Info("login accepted", "by", a.Kind().String(), "origin", req.Origin, "exec", req.Exec)
			return Result{Decision: Accept, Command: next, By: a.Kind()}
		case Reject:
			c.logger.Warn("login rejected", "by", a.Kind().String(), "origin", req.Origin, "exec", req.Exec)
			return Result{Decision: Reject, Command: cmd, By: a.Kind()}
		}
		c.logger.Debug("authenticator cancelled", "by", a.Kind().String())
	}

	c.logger.Warn("no authenticator accepted the login", "origin", req.Origin, "exec", req.Exec)
	return Result{Decision: Cancel, Command: cmd, By: KindNone}
}
