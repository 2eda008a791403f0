// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"log/slog"
	"os"
	"path/filepath"
)

// MarkerFile in the home directory disables the second factor for the
// account. Intended for recovery; every use is logged.
const MarkerFile = "NoSecsh"

// bypass admits the login without a second factor when the marker file
// exists or the session is nested inside one secsh already admitted.
type bypass struct {
	logger *slog.Logger
}

func (b *bypass) decide(req *Request) Decision {
	if req.HomeDir != "" {
		marker := filepath.Join(req.HomeDir, MarkerFile)
		if _, err := os.Stat(marker); err == nil {
			b.logger.Warn("bypass marker present, skipping authentication", "marker", marker)
			return Accept
		}
	}
	if req.Nested {
		b.logger.Warn("nested session, skipping authentication")
		return Accept
	}
	return Cancel
}
