// secsh - A second-factor gate installed as a login shell.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/secsh/internal/auth"
	"github.com/jeranaias/secsh/internal/challenge"
	"github.com/jeranaias/secsh/internal/cli"
	"github.com/jeranaias/secsh/internal/config"
	"github.com/jeranaias/secsh/internal/logging"
	"github.com/jeranaias/secsh/internal/mail"
	"github.com/jeranaias/secsh/internal/origin"
	"github.com/jeranaias/secsh/internal/shell"
	"github.com/jeranaias/secsh/internal/yubico"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

// run does everything main does except exit, so that deferred cleanup
// happens before the process ends on the failure paths.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := &cli.Presenter{Out: os.Stderr, In: os.Stdin}

	args, err := cli.ParseArgs(os.Args)
	if err != nil {
		return p.Fail(cli.UsageFailure(err))
	}
	if args.Version {
		fmt.Printf("secsh %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return cli.ExitSuccess
	}

	cfg, err := config.Load()
	if err != nil {
		return p.Fail(cli.ConfigFailure(err))
	}
	p.Pause = cfg.PauseOnError && cli.IsTTY()

	logger, err := openLog(cfg)
	if err != nil {
		return p.Fail(cli.ConfigFailure(err))
	}
	defer logger.Close()
	p.Logger = logger.Logger

	logger.Debug("secsh starting", "version", Version, "exec", args.Exec, "login_shell", args.LoginShell())

	if err := shell.CheckShells(logger.Logger, shell.ShellsFile, cfg.Shell); err != nil {
		return p.Fail(cli.ConfigFailure(err))
	}

	req := auth.Request{
		Origin:  origin.NewDetector(logger.Logger).Detect(ctx),
		Exec:    args.Exec,
		Command: args.Command,
	}
	_, req.Nested = os.LookupEnv(shell.OriginEnv)
	if home, err := os.UserHomeDir(); err == nil {
		req.HomeDir = home
	} else {
		logger.Warn("cannot determine home directory", "error", err)
	}

	chain := auth.NewChain(cfg, auth.Deps{
		Prompter: cli.NewPrompter(os.Stdin, os.Stderr),
		Mailer: mail.NewSMTPMailer(mail.Config{
			Host:        cfg.MailHost,
			Port:        cfg.MailPort,
			From:        cfg.MailFrom,
			PasswordCmd: cfg.MailPasswdCmd,
		}, logger.With("component", "mail")),
		Verifier: yubico.NewClient(
			yubico.WithURL(cfg.YubicoAPIURL),
			yubico.WithTimeout(cfg.HTTPTimeout()),
			yubico.WithLogger(logger.With("component", "yubico")),
		),
		Challenges: challenge.NewStore(cfg.TmpDir, challenge.WithTTL(cfg.ChallengeTTL())),
		Logger:     logger.Logger,
	})

	logger.Debug("evaluating authenticators", "order", chain.Kinds())

	res := chain.Evaluate(ctx, req)
	if !res.Accepted() {
		if res.Decision == auth.Reject {
			return p.Fail(cli.Rejected())
		}
		return p.Fail(cli.NotAccepted())
	}

	launch := shell.Launch{
		Path:        cfg.Shell,
		Argv0:       args.ShellArgv0(cfg.Shell),
		ShellArgs:   cfg.ShellArgv(),
		Passthrough: args.Passthrough,
		Exec:        args.Exec,
		Command:     res.Command,
		Origin:      req.Origin,
	}
	stop()
	err = shell.Exec(logger.Logger, launch)
	return p.Fail(cli.ShellFailure(err))
}

// openLog builds the file and console logger from cfg.
func openLog(cfg *config.Config) (*logging.Logger, error) {
	fileLevel, err1 := logging.ParseLevel(cfg.LogLevel)
	consoleLevel, err2 := logging.ParseLevel(cfg.ConsoleLogLevel)
	if err := errors.Join(err1, err2); err != nil {
		return nil, err
	}
	return logging.New(logging.Options{
		File:         cfg.LogFile,
		FileLevel:    fileLevel,
		Console:      os.Stderr,
		ConsoleLevel: consoleLevel,
	})
}
