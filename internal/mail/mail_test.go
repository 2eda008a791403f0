// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mail

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCodeMessage(t *testing.T) {
	m := CodeMessage("user@example.com", 123456)
	assert.Equal(t, "user@example.com", m.To)
	assert.Equal(t, "Login Code", m.Subject)
	assert.Equal(t, "Your code is 123456.", m.Body)
}

func TestBuild(t *testing.T) {
	s := NewSMTPMailer(Config{Host: "smtp.example.com", From: "secsh@example.com"}, quiet)

	msg, err := s.Build(CodeMessage("user@example.com", 654321))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "secsh@example.com")
	assert.Contains(t, out, "user@example.com")
	assert.Contains(t, out, "Subject: Login Code")
	assert.Contains(t, out, "Your code is 654321.")
}

func TestBuild_InvalidAddresses(t *testing.T) {
	s := NewSMTPMailer(Config{Host: "smtp.example.com", From: "not an address"}, quiet)
	_, err := s.Build(CodeMessage("user@example.com", 1))
	assert.Error(t, err)

	s = NewSMTPMailer(Config{Host: "smtp.example.com", From: "secsh@example.com"}, quiet)
	_, err = s.Build(CodeMessage("@@", 1))
	assert.Error(t, err)
}

func TestClientOptions_AuthOnlyWithPasswordCmd(t *testing.T) {
	s := NewSMTPMailer(Config{Host: "h", From: "a@b.c"}, quiet)
	assert.Len(t, s.ClientOptions(""), 3)

	s = NewSMTPMailer(Config{Host: "h", From: "a@b.c", PasswordCmd: "pass show smtp"}, quiet)
	assert.Len(t, s.ClientOptions("secret"), 6)
}

func TestNewSMTPMailer_Defaults(t *testing.T) {
	s := NewSMTPMailer(Config{Host: "h"}, nil)
	assert.Equal(t, DefaultPort, s.cfg.Port)
	assert.Equal(t, DefaultTimeout, s.cfg.Timeout)
	assert.NotNil(t, s.logger)
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_PasswordCommandFailureAbortsSend(t *testing.T) {
	s := NewSMTPMailer(Config{Host: "127.0.0.1", From: "a@example.com", PasswordCmd: "whatever"}, quiet)
	boom := errors.New("boom")
	s.password = func(ctx context.Context, cmd string) (string, error) { return "", boom }

	err := s.Send(context.Background(), CodeMessage("b@example.com", 111111))
	assert.ErrorIs(t, err, boom)
}

func TestSend_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTPMailer(Config{Host: "127.0.0.1", Port: port, From: "a@example.com", Timeout: 2 * time.Second}, quiet)
	err = s.Send(context.Background(), CodeMessage("b@example.com", 111111))
	assert.Error(t, err)
}

// =============================================================================
// PASSWORD COMMAND TESTS
// =============================================================================

func TestRunPasswordCmd(t *testing.T) {
	pw, err := RunPasswordCmd(context.Background(), "echo   hunter2 ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
}

func TestRunPasswordCmd_NoShellInterpretation(t *testing.T) {
	pw, err := RunPasswordCmd(context.Background(), "echo $HOME;")
	require.NoError(t, err)
	assert.Equal(t, "$HOME;", pw)
}

func TestRunPasswordCmd_Errors(t *testing.T) {
	_, err := RunPasswordCmd(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidPasswordCmd)

	_, err = RunPasswordCmd(context.Background(), "false")
	assert.Error(t, err)

	_, err = RunPasswordCmd(context.Background(), "/nonexistent/secsh-password-helper")
	assert.Error(t, err)
}
