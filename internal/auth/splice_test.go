// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPrefix(t *testing.T) {
	prefix, rest, ok := SplitPrefix("123456ls -l", 6)
	assert.True(t, ok)
	assert.Equal(t, "123456", prefix)
	assert.Equal(t, "ls -l", rest)

	prefix, rest, ok = SplitPrefix("12345", 6)
	assert.False(t, ok)
	assert.Empty(t, prefix)
	assert.Equal(t, "12345", rest)

	_, rest, ok = SplitPrefix("abc", 0)
	assert.False(t, ok)
	assert.Equal(t, "abc", rest)
}

// A successful split removes exactly width bytes and never touches the
// suffix; an unsuccessful one leaves the command as it was.
func TestSplitPrefix_Properties(t *testing.T) {
	cmds := []string{"", "a", "123456", "123456 ", " 123456", "081804ls -l; echo ok", "héllo wörld", "\x00\x01\x02\x03\x04\x05\x06"}
	for _, cmd := range cmds {
		for width := -1; width <= 50; width++ {
			prefix, rest, ok := SplitPrefix(cmd, width)
			if !ok {
				assert.Equal(t, cmd, rest)
				assert.Empty(t, prefix)
				continue
			}
			assert.Len(t, prefix, width)
			assert.Equal(t, cmd, prefix+rest)
			assert.Equal(t, cmd[width:], rest)
		}
	}
}

func TestEqualCode(t *testing.T) {
	assert.True(t, equalCode("123456", "123456"))
	assert.False(t, equalCode("123456", "123457"))
	assert.False(t, equalCode("12345", "123456"))
	assert.False(t, equalCode("", "123456"))
}

func TestTries(t *testing.T) {
	// Three counted retries exhaust.
	calls := 0
	d, exhausted := tries(context.Background(), MaxTries, func(int) (step, Decision) {
		calls++
		return retry, Cancel
	})
	assert.Equal(t, Reject, d)
	assert.True(t, exhausted)
	assert.Equal(t, 3, calls)

	// again does not count.
	calls = 0
	d, exhausted = tries(context.Background(), MaxTries, func(int) (step, Decision) {
		calls++
		if calls <= 4 {
			return again, Cancel
		}
		return retry, Cancel
	})
	assert.Equal(t, Reject, d)
	assert.True(t, exhausted)
	assert.Equal(t, 7, calls)

	// settle returns immediately with the given decision.
	var seen []int
	d, exhausted = tries(context.Background(), MaxTries, func(try int) (step, Decision) {
		seen = append(seen, try)
		if try == 2 {
			return settle, Accept
		}
		return retry, Cancel
	})
	assert.Equal(t, Accept, d)
	assert.False(t, exhausted)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestTries_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	d, exhausted := tries(ctx, MaxTries, func(int) (step, Decision) {
		calls++
		cancel()
		return retry, Cancel
	})
	assert.Equal(t, Cancel, d)
	assert.False(t, exhausted, "an interrupted exchange is not a rejection")
	assert.Equal(t, 1, calls)
}
