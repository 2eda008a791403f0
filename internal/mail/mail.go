// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mail delivers login codes over SMTP submission.
//
// SECURITY: STARTTLS is mandatory. A server that does not offer it fails the
// send instead of falling back to plaintext.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

const (
	// Subject is the subject line of every login-code message.
	Subject = "Login Code"

	// DefaultPort is the SMTP submission port.
	DefaultPort = 587

	// DefaultTimeout bounds dialing and each SMTP exchange.
	DefaultTimeout = 30 * time.Second

	// passwordCmdTimeout bounds mail_passwdcmd.
	passwordCmdTimeout = 15 * time.Second
)

// ErrInvalidPasswordCmd is returned when mail_passwdcmd is only whitespace.
var ErrInvalidPasswordCmd = errors.New("mail: invalid mail_passwdcmd")

// Message is a plain-text message to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// CodeMessage returns the message carrying a login code.
func CodeMessage(to string, code uint32) Message {
	return Message{
		To:      to,
		Subject: Subject,
		Body:    fmt.Sprintf("Your code is %06d.", code),
	}
}

// Config describes the submission server.
type Config struct {
	Host string
	Port int
	From string
	// PasswordCmd is run on every send; its trimmed stdout is the SMTP
	// password and From is the user name. Empty disables authentication.
	PasswordCmd string
	Timeout     time.Duration
}

// SMTPMailer sends messages through one submission server.
type SMTPMailer struct {
	cfg    Config
	logger *slog.Logger

	// password is replaceable for tests.
	password func(ctx context.Context, cmd string) (string, error)
}

// NewSMTPMailer returns a mailer for cfg.
func NewSMTPMailer(cfg Config, logger *slog.Logger) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPMailer{cfg: cfg, logger: logger, password: RunPasswordCmd}
}

// Build assembles the go-mail message for m.
func (s *SMTPMailer) Build(m Message) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail: invalid mail_from %q: %w", s.cfg.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("mail: invalid recipient %q: %w", m.To, err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, m.Body)
	return msg, nil
}

// ClientOptions returns the go-mail client options for a send using
// password. An empty password means no SMTP authentication.
func (s *SMTPMailer) ClientOptions(password string) []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.PasswordCmd != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.From),
			gomail.WithPassword(password),
		)
	}
	return opts
}

// Send delivers m.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg, err := s.Build(m)
	if err != nil {
		return err
	}

	var password string
	if s.cfg.PasswordCmd != "" {
		password, err = s.password(ctx, s.cfg.PasswordCmd)
		if err != nil {
			return err
		}
	}

	client, err := gomail.NewClient(s.cfg.Host, s.ClientOptions(password)...)
	if err != nil {
		return fmt.Errorf("mail: configure client for %s: %w", s.cfg.Host, err)
	}

	s.logger.Info("sending login code", "to", m.To, "host", s.cfg.Host, "port", s.cfg.Port)
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", m.To, err)
	}
	s.logger.Debug("email sent")
	return nil
}

// RunPasswordCmd runs cmd split on whitespace, without a shell, and returns
// its stdout with surrounding whitespace trimmed.
func RunPasswordCmd(ctx context.Context, cmd string) (string, error) {
	argv := strings.Fields(cmd)
	if len(argv) == 0 {
		return "", ErrInvalidPasswordCmd
	}

	ctx, cancel := context.WithTimeout(ctx, passwordCmdTimeout)
	defer cancel()

	var stdout bytes.Buffer
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdout = &stdout
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("mail: mail_passwdcmd failed: %w", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
