// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package otp implements the time-step one-time codes used by the TOTP
// authenticator: decoding of the shared secret and generation/verification
// of codes with a one-step skew window.
package otp

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySecret is returned when the configured secret has no key material.
var ErrEmptySecret = errors.New("otp: empty secret")

// secretReplacer drops the separators authenticator apps print for
// readability ("JBSW Y3DP ..." or "JBSW-Y3DP-...").
var secretReplacer = strings.NewReplacer(" ", "", "-", "", "\t", "")

// DecodeSecret decodes a base32 shared secret into raw key bytes.
//
// The input is case-insensitive, may contain spaces or dashes between groups
// and may or may not carry '=' padding.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(secretReplacer.Replace(strings.TrimSpace(secret)))
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, ErrEmptySecret
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("otp: invalid base32 secret: %w", err)
	}
	if len(key) == 0 {
		return nil, ErrEmptySecret
	}
	return key, nil
}

// EncodeSecret is the inverse of DecodeSecret. It produces the canonical
// unpadded upper-case form.
func EncodeSecret(key []byte) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key)
}
