// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package otp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	pqotp "github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultDigits is the code length used when none is configured.
	DefaultDigits = 6

	// DefaultStep is the time step used when none is configured.
	DefaultStep = 30 * time.Second

	// Skew is the number of steps tolerated on either side of the current
	// one to absorb clock drift and network latency.
	Skew = 1
)

// =============================================================================
// HASH ALGORITHM
// =============================================================================

// Algorithm selects the HMAC hash of the code generator.
type Algorithm int

const (
	SHA1 Algorithm = iota
	SHA256
	SHA512
)

// ErrUnknownAlgorithm is returned by ParseAlgorithm for names outside the
// SHA1/SHA256/SHA512 family. The accompanying Algorithm is always SHA1.
var ErrUnknownAlgorithm = errors.New("otp: unknown hash algorithm")

func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return "SHA1"
	}
}

func (a Algorithm) pq() pqotp.Algorithm {
	switch a {
	case SHA256:
		return pqotp.AlgorithmSHA256
	case SHA512:
		return pqotp.AlgorithmSHA512
	default:
		return pqotp.AlgorithmSHA1
	}
}

// ParseAlgorithm maps a configured hash name ("SHA1", "sha-256", "SHA512")
// to an Algorithm. Unrecognized names yield SHA1 together with
// ErrUnknownAlgorithm so the caller can log and carry on.
func ParseAlgorithm(name string) (Algorithm, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if n == "" {
		return SHA1, nil
	}
	if !strings.HasPrefix(n, "SHA") {
		return SHA1, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
	switch strings.TrimPrefix(strings.TrimPrefix(n, "SHA"), "-") {
	case "1":
		return SHA1, nil
	case "256":
		return SHA256, nil
	case "512":
		return SHA512, nil
	default:
		return SHA1, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// =============================================================================
// GENERATOR
// =============================================================================

// Params configures a Generator. Zero values select the defaults.
type Params struct {
	Digits    int
	Step      time.Duration
	Algorithm Algorithm
}

// Generator computes and verifies time-step codes for one shared secret.
type Generator struct {
	secret string
	digits int
	step   time.Duration
	opts   pqtotp.ValidateOpts
}

// NewGenerator returns a Generator for the raw key bytes produced by
// DecodeSecret.
func NewGenerator(key []byte, p Params) (*Generator, error) {
	if len(key) == 0 {
		return nil, ErrEmptySecret
	}
	if p.Digits <= 0 {
		p.Digits = DefaultDigits
	}
	if p.Step <= 0 {
		p.Step = DefaultStep
	}
	if p.Step%time.Second != 0 {
		return nil, fmt.Errorf("otp: step %s is not a whole number of seconds", p.Step)
	}

	return &Generator{
		secret: EncodeSecret(key),
		digits: p.Digits,
		step:   p.Step,
		opts: pqtotp.ValidateOpts{
			Period:    uint(p.Step / time.Second),
			Skew:      0,
			Digits:    pqotp.Digits(p.Digits),
			Algorithm: p.Algorithm.pq(),
		},
	}, nil
}

// Digits returns the code length.
func (g *Generator) Digits() int { return g.digits }

// Code returns the code for the time step containing t, zero-padded to the
// configured length.
func (g *Generator) Code(t time.Time) (string, error) {
	code, err := pqtotp.GenerateCodeCustom(g.secret, t, g.opts)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return code, nil
}

// Verify reports whether code matches the step containing t or one of its
// immediate neighbours.
//
// Comparison is numeric: the presented string must consist solely of ASCII
// digits, and leading zeros are insignificant. Anything else never matches.
func (g *Generator) Verify(code string, t time.Time) (bool, error) {
	presented, ok := parseDigits(code)
	if !ok {
		return false, nil
	}

	for offset := -Skew; offset <= Skew; offset++ {
		expected, err := g.Code(t.Add(time.Duration(offset) * g.step))
		if err != nil {
			return false, err
		}
		want, ok := parseDigits(expected)
		if ok && want == presented {
			return true, nil
		}
	}
	return false, nil
}

// parseDigits parses a non-empty run of ASCII digits. Signs, spaces and
// other characters accepted by strconv are rejected.
func parseDigits(s string) (uint64, bool) {
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
