// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the secsh configuration.
//
// Configuration is TOML, read from several files in order. Later files
// override earlier ones.
//
// # Configuration Precedence
//
// Files are merged in this order:
//   - /etc/secshrc
//   - /etc/secshrc.toml
//   - ~/.secshrc
//   - ~/.secshrc.toml
//
// Scalar values override only when set; accepted_ips lists are appended.
// SECSH_LOG_LEVEL overrides log_level after all files are merged.
//
// Leaving an authenticator's key unset (email, totp_secret, yubico_id)
// disables that authenticator.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // no config at all is fatal
//	}
//	shell := cfg.Shell
package config
