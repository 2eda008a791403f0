// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jeranaias/secsh/internal/challenge"
	"github.com/jeranaias/secsh/internal/config"
	"github.com/jeranaias/secsh/internal/mail"
)

// =============================================================================
// FAKES
// =============================================================================

// scriptedPrompter answers prompts from a fixed list of lines and then
// returns io.EOF.
type scriptedPrompter struct {
	lines   []string
	prompts []string
}

func prompter(lines ...string) *scriptedPrompter {
	return &scriptedPrompter{lines: lines}
}

func (p *scriptedPrompter) Prompt(_ context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

// recordingMailer keeps every message instead of sending it.
type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// fakeVerifier returns a fixed verdict and records what it was asked.
type fakeVerifier struct {
	ok    bool
	err   error
	calls []string
}

func (v *fakeVerifier) Verify(_ context.Context, otp string) (bool, error) {
	v.calls = append(v.calls, otp)
	return v.ok, v.err
}

// =============================================================================
// FIXTURES
// =============================================================================

const (
	// RFC 6238 SHA1 seed "12345678901234567890".
	testSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	// Six-digit code for testSecret at testTime.
	testCode  = "081804"
	testEmail = "target@example.com"
	testYubID = "cccccccccccb"
	// A 44-character OTP from testYubID.
	testOTP = testYubID + "dhuhbtgvbrtbhefkcdlbkjtuvgvucjkj"
)

var testTime = time.Unix(1111111109, 0)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// baseConfig returns a configuration with every authenticator disabled.
func baseConfig() *config.Config {
	c := config.Default()
	c.Shell = "/bin/sh"
	return c
}

func totpConfig() *config.Config {
	c := baseConfig()
	c.TOTPSecret = testSecret
	return c
}

func emailConfig() *config.Config {
	c := baseConfig()
	c.Email = testEmail
	c.MailHost = "smtp.example.com"
	c.MailFrom = "secsh@example.com"
	return c
}

func yubicoConfig() *config.Config {
	c := baseConfig()
	c.YubicoID = testYubID
	return c
}

func fixedCode(code uint32) func() (uint32, error) {
	return func() (uint32, error) { return code, nil }
}

// testDeps returns collaborators with a fixed clock and code and a store in
// a fresh temp directory.
func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Challenges: challenge.NewStore(t.TempDir()),
		Logger:     quiet,
		Now:        func() time.Time { return testTime },
		NewCode:    fixedCode(123456),
	}
}

func loginReq() Request {
	return Request{}
}

func execReq(cmd string) Request {
	return Request{Exec: true, Command: cmd}
}
