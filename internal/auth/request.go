// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/jeranaias/secsh/internal/challenge"
	"github.com/jeranaias/secsh/internal/mail"
)

// Request describes one login attempt. It is built once per process and
// not modified afterwards.
type Request struct {
	// Origin is the remote address of the login, or "" if unknown.
	Origin string
	// Exec is set for a non-interactive `-c command` invocation.
	Exec bool
	// Command is the -c argument in exec mode. Codes may be spliced onto
	// its front.
	Command string
	// Nested is set when this process runs inside a session that an
	// earlier secsh already admitted.
	Nested bool
	// HomeDir is the invoking user's home directory.
	HomeDir string
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Prompter reads one line of user input after showing prompt. The returned
// line has no trailing newline. A cancelled ctx abandons the read.
type Prompter interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, m mail.Message) error
}

// Verifier checks a hardware-token OTP with a remote service. A false
// result with a nil error is a negative verdict; an error means no verdict.
type Verifier interface {
	Verify(ctx context.Context, otp string) (bool, error)
}

// ChallengeStore holds the pending exec-mode email code.
type ChallengeStore interface {
	Save(code string) error
	Load() (challenge.Record, error)
	Remove() error
}

// Deps are the side-effecting collaborators of the authenticators. A nil
// collaborator disables the authenticators that need it.
type Deps struct {
	Prompter   Prompter
	Mailer     Mailer
	Verifier   Verifier
	Challenges ChallengeStore
	Logger     *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
	// NewCode defaults to a uniform random code in [100000, 999999].
	NewCode func() (uint32, error)
}

func (d *Deps) fill() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewCode == nil {
		d.NewCode = RandomCode
	}
}

const (
	minCode = 100000
	maxCode = 999999
)

// RandomCode returns a uniformly distributed six-digit code from the
// system CSPRNG.
func RandomCode() (uint32, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return 0, fmt.Errorf("generate code: %w", err)
	}
	return uint32(n.Int64()) + minCode, nil
}
