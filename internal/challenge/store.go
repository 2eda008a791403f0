// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package challenge persists the single-use email login code between the two
// process invocations of a non-interactive (-c) login.
//
// The first invocation mails a code and stores it here; the second one
// presents the code as a command prefix and, on a match, removes the record
// so it cannot be replayed.
//
// KNOWN LIMITATION: the record lives under a fixed file name, so two
// concurrent exec-mode logins for the same account race on it.
package challenge

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// FileName is the name of the code file inside the temp directory.
	FileName = "secsh_code"

	// DefaultTTL bounds how long a mailed code stays redeemable.
	DefaultTTL = 10 * time.Minute

	dirPerm  = 0o700
	filePerm = 0o600
)

// ErrNoChallenge is returned by Load when there is no redeemable record:
// the file is missing, empty or expired.
var ErrNoChallenge = errors.New("challenge: no pending code")

// Record is a pending code and the time it was issued.
type Record struct {
	Code     string
	IssuedAt time.Time
}

// Store is a file-backed single slot for one pending code.
type Store struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL. A non-positive TTL disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a Store keeping its record under dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the code file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Save replaces any pending record with code.
//
// The file is written to a temporary name in the same directory and renamed
// into place, so a concurrent reader sees either the old code or the new one
// and never a torn write.
func (s *Store) Save(code string) error {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("create challenge directory: %w", err)
	}

	f, err := os.CreateTemp(s.dir, ".code-")
	if err != nil {
		return fmt.Errorf("create temp code file: %w", err)
	}
	tmp := f.Name()

	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(tmp)
		}
	}()

	// CreateTemp already uses 0600; keep it explicit in case umask games
	// ever change that.
	if err := f.Chmod(filePerm); err != nil {
		return fmt.Errorf("set code file permissions: %w", err)
	}
	if _, err := f.WriteString(code); err != nil {
		return fmt.Errorf("write code file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync code file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close code file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return fmt.Errorf("install code file: %w", err)
	}
	committed = true
	return nil
}

// Load returns the pending record with surrounding whitespace trimmed from
// the code. Expired records are removed and reported as ErrNoChallenge.
func (s *Store) Load() (Record, error) {
	path := s.Path()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNoChallenge
	}
	if err != nil {
		return Record{}, fmt.Errorf("stat code file: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNoChallenge
	}
	if err != nil {
		return Record{}, fmt.Errorf("read code file: %w", err)
	}

	rec := Record{
		Code:     strings.TrimSpace(string(data)),
		IssuedAt: info.ModTime(),
	}
	if rec.Code == "" {
		return Record{}, ErrNoChallenge
	}
	if s.ttl > 0 && s.now().Sub(rec.IssuedAt) > s.ttl {
		_ = s.Remove()
		return Record{}, fmt.Errorf("%w: issued %s ago", ErrNoChallenge, s.now().Sub(rec.IssuedAt).Round(time.Second))
	}
	return rec, nil
}

// Remove deletes the pending record. Removing a missing record is not an
// error.
func (s *Store) Remove() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove code file: %w", err)
	}
	return nil
}
