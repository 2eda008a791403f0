// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth implements the secsh authenticator chain.
//
// Five authenticators run in a fixed order:
//
//	bypass → local-origin → email → totp → hardware-token
//
// Each returns a Decision. Accept admits the login and Reject refuses it;
// both end the chain. Cancel passes to the next authenticator. If every
// authenticator cancels the login is refused.
//
// # Exec Mode
//
// For `secsh -c <command>` there is nobody to prompt. Codes are instead
// typed in front of the command and removed before it runs:
//
//	ssh host '123456ls -l'   # 6-digit TOTP, runs "ls -l"
//
// Each splicing authenticator owns a fixed-width prefix (TOTP: the digit
// count, email: 6, hardware token: 44) and strips it only on success.
//
// # Security Notes
//
//   - Authenticators never return errors. Failures are logged and mapped to
//     Cancel, or to Reject when the answer is a definite no.
//   - Codes and secrets are never logged.
//   - Reject messages shown to the user never name the authenticator.
//   - Events of a login in progress are logged at Warn or below, under the
//     default console threshold. Error is kept for configuration that
//     disables an authenticator.
package auth
