// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardwareToken_Login(t *testing.T) {
	foreign := "ccccccdddddd" + strings.Repeat("x", 32)

	tests := []struct {
		name     string
		line     string
		verifier *fakeVerifier
		want     Decision
		calls    int
	}{
		{"verified", testOTP, &fakeVerifier{ok: true}, Accept, 1},
		{"whitespace trimmed", "  " + testOTP + "\n", &fakeVerifier{ok: true}, Accept, 1},
		{"negative verdict", testOTP, &fakeVerifier{ok: false}, Cancel, 1},
		{"verifier error", testOTP, &fakeVerifier{err: errors.New("timeout")}, Cancel, 1},
		{"empty skips", "", &fakeVerifier{ok: true}, Cancel, 0},
		{"too short", testYubID + "c", &fakeVerifier{ok: true}, Reject, 0},
		{"foreign token", foreign, &fakeVerifier{ok: true}, Reject, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(t)
			deps.Verifier = tt.verifier
			deps.Prompter = prompter(tt.line)

			res := NewChain(yubicoConfig(), deps).Evaluate(context.Background(), loginReq())
			assert.Equal(t, tt.want, res.Decision)
			assert.Len(t, tt.verifier.calls, tt.calls)
		})
	}
}

func TestHardwareToken_LoginReadError(t *testing.T) {
	deps := testDeps(t)
	v := &fakeVerifier{ok: true}
	deps.Verifier = v
	deps.Prompter = prompter()

	res := NewChain(yubicoConfig(), deps).Evaluate(context.Background(), loginReq())
	assert.Equal(t, Cancel, res.Decision)
	assert.Empty(t, v.calls)
}

func TestHardwareToken_Exec(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		verifier *fakeVerifier
		want     Decision
		wantCmd  string
		calls    int
	}{
		{"verified", testOTP + "uptime", &fakeVerifier{ok: true}, Accept, "uptime", 1},
		{"otp only", testOTP, &fakeVerifier{ok: true}, Accept, "", 1},
		{"negative verdict", testOTP + "uptime", &fakeVerifier{ok: false}, Cancel, testOTP + "uptime", 1},
		{"verifier error", testOTP + "uptime", &fakeVerifier{err: errors.New("down")}, Cancel, testOTP + "uptime", 1},
		{"short", testOTP[:43], &fakeVerifier{ok: true}, Cancel, testOTP[:43], 0},
		{"foreign token not sent", strings.Repeat("d", 44) + "id", &fakeVerifier{ok: true}, Cancel, strings.Repeat("d", 44) + "id", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(t)
			deps.Verifier = tt.verifier

			res := NewChain(yubicoConfig(), deps).Evaluate(context.Background(), execReq(tt.cmd))
			assert.Equal(t, tt.want, res.Decision)
			assert.Equal(t, tt.wantCmd, res.Command)
			assert.Len(t, tt.verifier.calls, tt.calls)
			if tt.calls > 0 {
				assert.Equal(t, testOTP, tt.verifier.calls[0], "exactly the 44-character prefix is verified")
			}
		})
	}
}

func TestHardwareToken_Disabled(t *testing.T) {
	tests := []struct {
		name string
		id   string
		v    Verifier
	}{
		{"no id", "", &fakeVerifier{ok: true}},
		{"short id", "cccccc", &fakeVerifier{ok: true}},
		{"no verifier", testYubID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.YubicoID = tt.id

			deps := testDeps(t)
			deps.Verifier = tt.v
			p := prompter(testOTP)
			deps.Prompter = p

			c := NewChain(cfg, deps)
			assert.Equal(t, Cancel, c.Evaluate(context.Background(), loginReq()).Decision)
			assert.Equal(t, Cancel, c.Evaluate(context.Background(), execReq(testOTP+"ls")).Decision)
			assert.Empty(t, p.prompts)
		})
	}
}

func TestHardwareToken_LongIDTruncated(t *testing.T) {
	cfg := baseConfig()
	cfg.YubicoID = testYubID + "extra"

	deps := testDeps(t)
	deps.Verifier = &fakeVerifier{ok: true}

	res := NewChain(cfg, deps).Evaluate(context.Background(), execReq(testOTP+"ls"))
	assert.Equal(t, Accept, res.Decision)
	assert.Equal(t, "ls", res.Command)
}
