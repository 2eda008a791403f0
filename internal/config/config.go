// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config is the merged secsh configuration.
type Config struct {
	// Shell is the real login shell to launch after authentication.
	Shell string `toml:"shell"`
	// ShellArgs are extra whitespace-separated arguments for Shell.
	ShellArgs string `toml:"shell_args"`

	// LogFile receives the full authentication log (append mode).
	LogFile string `toml:"log_file"`
	// LogLevel is the minimum level written to LogFile.
	LogLevel string `toml:"log_level"`
	// ConsoleLogLevel is the minimum level echoed to stderr.
	// Keep it high: console output is visible to whoever is logging in.
	ConsoleLogLevel string `toml:"console_log_level"`
	// PauseOnError waits for Enter before exiting on failure, so terminals
	// that close on exit leave the message readable.
	PauseOnError bool `toml:"pause_on_error"`

	// TmpDir holds the email challenge file. It should be private to the user.
	TmpDir string `toml:"tmpdir"`
	// ChallengeTTLSecs bounds how long a mailed exec-mode code stays valid.
	ChallengeTTLSecs int `toml:"challenge_ttl_secs"`

	// AcceptedIPs lists CIDR prefixes, a-b ranges or single addresses that
	// are allowed in without a second factor.
	AcceptedIPs []string `toml:"accepted_ips"`

	// Email is the recipient of login codes. Not prefixed with mail_ for
	// compatibility with existing configurations.
	Email         string `toml:"email"`
	MailHost      string `toml:"mail_host"`
	MailPort      int    `toml:"mail_port"`
	MailFrom      string `toml:"mail_from"`
	MailPasswdCmd string `toml:"mail_passwdcmd"`

	TOTPSecret   string `toml:"totp_secret"`
	TOTPDigits   int    `toml:"totp_digits"`
	TOTPTimestep int    `toml:"totp_timestep"`
	TOTPHash     string `toml:"totp_hash"`

	// YubicoID is the 12-character public identifier of the user's token.
	YubicoID        string `toml:"yubico_id"`
	YubicoAPIURL    string `toml:"yubico_api_url"`
	HTTPTimeoutSecs int    `toml:"http_timeout_secs"`

	// defined holds the keys present in the file this Config was decoded
	// from. Nil for a Config built in code.
	defined map[string]bool
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultLogFile         = "/var/log/secsh.log"
	DefaultLogLevel        = "info"
	DefaultConsoleLogLevel = "error"
	DefaultMailPort        = 587
	DefaultTOTPDigits      = 6
	DefaultTOTPTimestep    = 30
	DefaultTOTPHash        = "SHA1"
	DefaultYubicoAPIURL    = "https://api.yubico.com/wsapi/2.0/verify"
	DefaultHTTPTimeoutSecs = 10
	DefaultChallengeTTL    = 600

	// fallbackTmpDir is used only when the home directory is unknown.
	// Other users can read it; set tmpdir explicitly in that case.
	fallbackTmpDir = "/tmp/secsh"
)

// Default returns a Config with every optional authenticator disabled.
func Default() *Config {
	tmpdir := fallbackTmpDir
	if home, err := os.UserHomeDir(); err == nil {
		tmpdir = filepath.Join(home, ".cache", "secsh")
	}

	return &Config{
		LogFile:          DefaultLogFile,
		LogLevel:         DefaultLogLevel,
		ConsoleLogLevel:  DefaultConsoleLogLevel,
		TmpDir:           tmpdir,
		ChallengeTTLSecs: DefaultChallengeTTL,
		AcceptedIPs:      []string{},
		MailPort:         DefaultMailPort,
		TOTPDigits:       DefaultTOTPDigits,
		TOTPTimestep:     DefaultTOTPTimestep,
		TOTPHash:         DefaultTOTPHash,
		YubicoAPIURL:     DefaultYubicoAPIURL,
		HTTPTimeoutSecs:  DefaultHTTPTimeoutSecs,
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// TOTPStep returns the TOTP time step as a duration.
func (c *Config) TOTPStep() time.Duration {
	return time.Duration(c.TOTPTimestep) * time.Second
}

// HTTPTimeout returns the per-request timeout for the OTP verification API.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSecs) * time.Second
}

// ChallengeTTL returns how long an exec-mode email code stays redeemable.
// Zero disables expiry.
func (c *Config) ChallengeTTL() time.Duration {
	return time.Duration(c.ChallengeTTLSecs) * time.Second
}

// ShellArgv returns ShellArgs split on whitespace.
func (c *Config) ShellArgv() []string {
	return strings.Fields(c.ShellArgs)
}

// =============================================================================
// PATHS
// =============================================================================

// SystemPaths are read before the per-user files.
var SystemPaths = []string{"/etc/secshrc", "/etc/secshrc.toml"}

// SearchPaths returns every candidate configuration file in load order.
func SearchPaths() []string {
	paths := append([]string{}, SystemPaths...)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".secshrc"),
			filepath.Join(home, ".secshrc.toml"),
		)
	}
	return paths
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// ErrNoConfig is returned when none of the searched files exist.
var ErrNoConfig = errors.New("no configuration file found")

// Load reads SearchPaths on top of Default, applies environment overrides
// and validates the result.
func Load() (*Config, error) {
	return LoadPaths(SearchPaths()...)
}

// LoadPaths is Load with an explicit list of files. Missing files are
// skipped; a file that exists but cannot be parsed is an error, as is the
// absence of every file.
func LoadPaths(paths ...string) (*Config, error) {
	cfg := Default()
	found := 0

	for _, path := range paths {
		other, err := LoadTOML(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg.Merge(other)
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%w (searched %s)", ErrNoConfig, strings.Join(paths, ", "))
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a single file without applying defaults. Unknown keys are
// rejected so that a typo cannot silently disable an authenticator.
func LoadTOML(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	cfg.defined = make(map[string]bool)
	for _, k := range md.Keys() {
		if len(k) > 0 {
			cfg.defined[k[0]] = true
		}
	}
	return &cfg, nil
}

// Merge overlays other onto c. A key set in other's file replaces the value
// in c, even when set to zero, so that `challenge_ttl_secs = 0` or
// `pause_on_error = false` in a later file takes effect. For a Config built
// in code, non-zero scalars replace. AcceptedIPs are appended.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	c.AcceptedIPs = append(c.AcceptedIPs, other.AcceptedIPs...)

	mergeString(&c.Shell, other.Shell, other.isSet("shell"))
	mergeString(&c.ShellArgs, other.ShellArgs, other.isSet("shell_args"))
	mergeString(&c.LogFile, other.LogFile, other.isSet("log_file"))
	mergeString(&c.LogLevel, other.LogLevel, other.isSet("log_level"))
	mergeString(&c.ConsoleLogLevel, other.ConsoleLogLevel, other.isSet("console_log_level"))
	mergeString(&c.TmpDir, other.TmpDir, other.isSet("tmpdir"))
	mergeString(&c.Email, other.Email, other.isSet("email"))
	mergeString(&c.MailHost, other.MailHost, other.isSet("mail_host"))
	mergeString(&c.MailFrom, other.MailFrom, other.isSet("mail_from"))
	mergeString(&c.MailPasswdCmd, other.MailPasswdCmd, other.isSet("mail_passwdcmd"))
	mergeString(&c.TOTPSecret, other.TOTPSecret, other.isSet("totp_secret"))
	mergeString(&c.TOTPHash, other.TOTPHash, other.isSet("totp_hash"))
	mergeString(&c.YubicoID, other.YubicoID, other.isSet("yubico_id"))
	mergeString(&c.YubicoAPIURL, other.YubicoAPIURL, other.isSet("yubico_api_url"))

	mergeInt(&c.MailPort, other.MailPort, other.isSet("mail_port"))
	mergeInt(&c.TOTPDigits, other.TOTPDigits, other.isSet("totp_digits"))
	mergeInt(&c.TOTPTimestep, other.TOTPTimestep, other.isSet("totp_timestep"))
	mergeInt(&c.HTTPTimeoutSecs, other.HTTPTimeoutSecs, other.isSet("http_timeout_secs"))
	mergeInt(&c.ChallengeTTLSecs, other.ChallengeTTLSecs, other.isSet("challenge_ttl_secs"))

	if other.isSet("pause_on_error") || other.PauseOnError {
		c.PauseOnError = other.PauseOnError
	}
}

// isSet reports whether key appeared in the file c was decoded from.
func (c *Config) isSet(key string) bool {
	return c.defined[key]
}

func mergeString(dst *string, src string, set bool) {
	if set || src != "" {
		*dst = src
	}
}

func mergeInt(dst *int, src int, set bool) {
	if set || src != 0 {
		*dst = src
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies the supported environment variables:
//   - SECSH_LOG_LEVEL: overrides log_level
//
// Nothing that affects which authenticators run can be set from the
// environment; a login shell's environment is partly controlled by the
// connecting client.
func (c *Config) ApplyEnvOverrides() {
	if level := os.Getenv("SECSH_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "off": true, "none": true,
}

// Validate checks the values the process cannot run without. Incomplete
// authenticator settings are not errors here: the authenticator disables
// itself and logs why.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Shell == "" {
		errs = append(errs, ValidationError{Field: "shell", Message: "must be set"})
	} else if !filepath.IsAbs(c.Shell) {
		errs = append(errs, ValidationError{Field: "shell", Message: fmt.Sprintf("%q is not an absolute path", c.Shell)})
	}

	if c.LogFile == "" {
		errs = append(errs, ValidationError{Field: "log_file", Message: "must be set"})
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, ValidationError{Field: "log_level", Message: fmt.Sprintf("invalid level %q", c.LogLevel)})
	}
	if !validLevels[strings.ToLower(c.ConsoleLogLevel)] {
		errs = append(errs, ValidationError{Field: "console_log_level", Message: fmt.Sprintf("invalid level %q", c.ConsoleLogLevel)})
	}

	if c.TmpDir == "" {
		errs = append(errs, ValidationError{Field: "tmpdir", Message: "must be set"})
	}
	if c.ChallengeTTLSecs < 0 {
		errs = append(errs, ValidationError{Field: "challenge_ttl_secs", Message: "cannot be negative"})
	}

	if c.MailPort < 1 || c.MailPort > 65535 {
		errs = append(errs, ValidationError{Field: "mail_port", Message: fmt.Sprintf("%d is out of range 1-65535", c.MailPort)})
	}

	if c.TOTPDigits < 1 || c.TOTPDigits > 9 {
		errs = append(errs, ValidationError{Field: "totp_digits", Message: fmt.Sprintf("%d is out of range 1-9", c.TOTPDigits)})
	}
	if c.TOTPTimestep < 1 {
		errs = append(errs, ValidationError{Field: "totp_timestep", Message: "must be positive"})
	}

	if c.HTTPTimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "http_timeout_secs", Message: "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
