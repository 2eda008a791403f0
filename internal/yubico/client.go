// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package yubico verifies hardware-token one-time passwords against a
// Yubico-compatible validation server (protocol 2.0).
//
// SECURITY: Responses are not signature-checked. The request nonce and OTP
// echoed by the server are compared against what was sent, and TLS
// protects the channel.
package yubico

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultURL is Yubico's public validation endpoint.
	DefaultURL = "https://api.yubico.com/wsapi/2.0/verify"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	// MaxAttempts is the number of requests made before giving up on
	// transport errors.
	MaxAttempts = 3

	// IDLength is the length of the public identifier prefix of every OTP.
	IDLength = 12

	// OTPLength is the length of a full modhex OTP.
	OTPLength = 44

	// maxResponseSize caps the body read from the server.
	maxResponseSize = 64 * 1024

	nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	minNonceLen   = 16
	maxNonceLen   = 40
	maxClientID   = 1000
)

var (
	// ErrMalformedResponse is returned when a response line is not key=value.
	ErrMalformedResponse = errors.New("yubico: malformed response")

	// ErrMissingField is returned when a required response field is absent.
	ErrMissingField = errors.New("yubico: missing response field")
)

// Client talks to a validation server. The zero value is not usable; use
// NewClient.
type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides DefaultURL.
func WithURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.url = u
		}
	}
}

// WithHTTPClient replaces the HTTP client, for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for verdict details.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient returns a Client for DefaultURL unless overridden.
func NewClient(opts ...Option) *Client {
	c := &Client{
		url: DefaultURL,
		http: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				TLSHandshakeTimeout: DefaultTimeout,
				TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify asks the server whether otp is valid.
//
// It returns (true, nil) only when the server echoes the OTP and nonce that
// were sent and reports status OK. A mismatched echo or any other status is
// (false, nil). Transport failures are retried up to MaxAttempts times and
// then returned as an error, as are malformed or incomplete responses.
func (c *Client) Verify(ctx context.Context, otp string) (bool, error) {
	id, err := randomInt(maxClientID)
	if err != nil {
		return false, err
	}
	nonce, err := randomNonce()
	if err != nil {
		return false, err
	}

	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("nonce", nonce)
	q.Set("otp", otp)

	reqURL, err := url.Parse(c.url)
	if err != nil {
		return false, fmt.Errorf("yubico: invalid url %q: %w", c.url, err)
	}
	reqURL.RawQuery = q.Encode()

	var body string
	attempt := 0
	op := func() error {
		attempt++
		b, err := c.fetch(ctx, reqURL.String())
		if err != nil {
			c.logger.Debug("verification request failed", "attempt", attempt, "error", err)
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, MaxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return false, fmt.Errorf("yubico: request failed after %d attempts: %w", attempt, err)
	}

	fields, err := parseResponse(body)
	if err != nil {
		return false, err
	}
	return c.judge(fields, otp, nonce)
}

func (c *Client) fetch(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return string(data), nil
}

// judge applies the verdict rules in order: otp echo, nonce echo, status.
func (c *Client) judge(fields map[string]string, otp, nonce string) (bool, error) {
	gotOTP, ok := fields["otp"]
	if !ok {
		return false, fmt.Errorf("%w: otp", ErrMissingField)
	}
	if gotOTP != otp {
		c.logger.Error("OTP in the response does not match the request")
		return false, nil
	}

	gotNonce, ok := fields["nonce"]
	if !ok {
		return false, fmt.Errorf("%w: nonce", ErrMissingField)
	}
	if gotNonce != nonce {
		c.logger.Error("nonce in the response does not match the request")
		return false, nil
	}

	status, ok := fields["status"]
	if !ok {
		return false, fmt.Errorf("%w: status", ErrMissingField)
	}
	if status != "OK" {
		c.logger.Error("token rejected by validation server", "status", status)
		return false, nil
	}
	return true, nil
}

// parseResponse splits a protocol 2.0 reply into its key=value fields.
// Lines may end in CRLF or LF; blank lines are skipped. Values may contain
// '='; only the first one separates key from value.
func parseResponse(body string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: line %q has no '='", ErrMalformedResponse, line)
		}
		fields[key] = value
	}
	return fields, nil
}

// =============================================================================
// RANDOMNESS
// =============================================================================

func randomInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("yubico: read random: %w", err)
	}
	return int(v.Int64()), nil
}

// randomNonce returns an alphanumeric string of 16 to 40 characters.
func randomNonce() (string, error) {
	extra, err := randomInt(maxNonceLen - minNonceLen + 1)
	if err != nil {
		return "", err
	}
	b := make([]byte, minNonceLen+extra)
	for i := range b {
		j, err := randomInt(len(nonceAlphabet))
		if err != nil {
			return "", err
		}
		b[i] = nonceAlphabet[j]
	}
	return string(b), nil
}
