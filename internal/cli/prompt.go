// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Line input for the authenticators.
//
// USABILITY: On a terminal prompts get line editing through liner. No
// history is kept: every line typed here is an address or a code.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned when the user presses Ctrl+C at a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter reads answers from the user. It satisfies auth.Prompter.
type Prompter struct {
	tty bool
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter returns a Prompter reading from in and writing prompts to
// out. Line editing is used when in is a terminal liner can drive.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	return &Prompter{
		tty: IsTerminal(in) && liner.TerminalSupported(),
		in:  bufio.NewReader(in),
		out: out,
	}
}

// NewReaderPrompter returns a Prompter for a non-terminal reader.
func NewReaderPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Prompt shows prompt and returns the line typed, without its line ending.
// A final line without a newline is returned as is; EOF before any input
// is io.EOF. If ctx is cancelled while waiting the read is abandoned and
// ctx.Err() is returned; the Prompter must not be used afterwards.
func (p *Prompter) Prompt(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.tty {
		return p.promptTTY(ctx, prompt)
	}

	fmt.Fprint(p.out, prompt)
	return await(ctx, p.readLine)
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *Prompter) promptTTY(ctx context.Context, prompt string) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	input, err := await(ctx, func() (string, error) { return line.Prompt(prompt) })
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", ErrAborted
	}
	return input, err
}

type readResult struct {
	line string
	err  error
}

// await runs read in the background and returns its result, or ctx.Err()
// as soon as ctx is done. A blocked terminal read cannot be interrupted, so
// on cancellation the reading goroutine is left behind.
func await(ctx context.Context, read func() (string, error)) (string, error) {
	done := make(chan readResult, 1)
	go func() {
		line, err := read()
		done <- readResult{line: line, err: err}
	}()

	select {
	case r := <-done:
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
