package interview

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	errorskg "github.com/sweetpotato0/bizplan/errors"
)

// Terminal is a line-oriented Conversation over a reader and a writer, used
// by the local chat command.
type Terminal struct {
	in      io.Reader
	out     io.Writer
	timeout time.Duration
	prompt  string

	once  sync.Once
	lines chan string
	err   error
}

var _ Conversation = (*Terminal)(nil)

// TerminalOption customizes a terminal.
type TerminalOption func(*Terminal)

// WithTerminalTimeout bounds how long Ask waits for a line.
func WithTerminalTimeout(d time.Duration) TerminalOption {
	return func(t *Terminal) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithPrompt sets the marker printed before reading a line.
func WithPrompt(p string) TerminalOption {
	return func(t *Terminal) {
		t.prompt = p
	}
}

// NewTerminal creates a terminal conversation.
func NewTerminal(in io.Reader, out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		in:      in,
		out:     out,
		timeout: DefaultInputTimeout,
		prompt:  "> ",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Terminal) start() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
		t.err = scanner.Err()
	}()
}

// Ask prints output and reads one non-blank line. End of input counts as
// exit.
func (t *Terminal) Ask(ctx context.Context, output string) (string, error) {
	t.once.Do(t.start)
	fmt.Fprintf(t.out, "\n%s\n\n%s", output, t.prompt)

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", errorskg.ErrInputTimeout
		case line, ok := <-t.lines:
			if !ok {
				if t.err != nil {
					return "", fmt.Errorf("failed to read input: %w", t.err)
				}
				return "exit", nil
			}
			if line = strings.TrimSpace(line); line != "" {
				return line, nil
			}
			fmt.Fprint(t.out, t.prompt)
		}
	}
}

// Finish prints the final output.
func (t *Terminal) Finish(output string) {
	if output != "" {
		fmt.Fprintf(t.out, "\n%s\n", output)
	}
}
