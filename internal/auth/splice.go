// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "crypto/subtle"

// SplitPrefix splits the first width bytes off cmd.
//
// In exec mode a code is typed in front of the real command
// ("123456ls -l"). If cmd is shorter than width, ok is false and rest is cmd
// unchanged. The suffix is returned exactly as given, including any leading
// whitespace.
func SplitPrefix(cmd string, width int) (prefix, rest string, ok bool) {
	if width <= 0 || len(cmd) < width {
		return "", cmd, false
	}
	return cmd[:width], cmd[width:], true
}

// equalCode compares two codes in constant time.
func equalCode(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
