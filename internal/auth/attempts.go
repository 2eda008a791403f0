// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "context"

// MaxTries is the number of wrong answers allowed per interactive prompt.
const MaxTries = 3

// step is what one round of an interactive exchange asks for next.
type step int

const (
	// retry counts the round as a failed try and asks again.
	retry step = iota
	// again asks again without counting the round (e.g. a resend request).
	again
	// settle ends the exchange with the returned decision.
	settle
)

// tries runs round until it settles or max rounds have been counted as
// retries, in which case the exchange is exhausted and the login rejected.
// round receives the 1-based number of the try in progress. A cancelled ctx
// ends the exchange with Cancel before the next round.
func tries(ctx context.Context, max int, round func(try int) (step, Decision)) (Decision, bool) {
	for used := 0; used < max; {
		if ctx.Err() != nil {
			return Cancel, false
		}
		s, d := round(used + 1)
		switch s {
		case settle:
			return d, false
		case again:
		default:
			used++
		}
	}
	return Reject, true
}
