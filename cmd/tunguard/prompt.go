package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var (
	// errTokenAttemptsExhausted is returned after too many rejected tokens.
	errTokenAttemptsExhausted = errors.New("token attempts exhausted")

	// errNoInput is returned when the prompt reaches end of input.
	errNoInput = errors.New("no token entered")
)

// tokenVerifier checks a candidate admin token.
type tokenVerifier func(ctx context.Context, token string) error

// prompter reads secrets from the operator. Terminal input is not echoed.
// Reads can be abandoned through a context; the operator does not have to
// press Enter after an interrupt.
type prompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan lineResult
}

type lineResult struct {
	line string
	err  error
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out}
}

// isTerminal reports whether in is an interactive terminal.
func (p *prompter) isTerminal() (int, bool) {
	f, ok := p.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd()) //nolint:gosec // file descriptors fit in int
	return fd, term.IsTerminal(fd)
}

// readSecret prints prompt and reads one line without echo when possible.
// It returns ctx.Err() as soon as ctx is done.
func (p *prompter) readSecret(ctx context.Context, prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)

	if fd, ok := p.isTerminal(); ok {
		return p.readPassword(ctx, fd)
	}

	line, err := p.readLine(ctx)
	switch {
	case err == nil, errors.Is(err, io.EOF) && line != "":
		return strings.TrimSpace(line), nil
	case errors.Is(err, io.EOF):
		return "", errNoInput
	default:
		return "", err
	}
}

// readPassword reads from the terminal with echo disabled. On cancellation
// the terminal state is restored before returning; the blocked read is
// left behind and ends with the process.
func (p *prompter) readPassword(ctx context.Context, fd int) (string, error) {
	state, err := term.GetState(fd)
	if err != nil {
		return "", err
	}

	done := make(chan lineResult, 1)
	go func() {
		b, err := term.ReadPassword(fd)
		done <- lineResult{line: string(b), err: err}
	}()

	select {
	case <-ctx.Done():
		_ = term.Restore(fd, state)
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r := <-done:
		fmt.Fprintln(p.out)
		if r.err != nil {
			return "", r.err
		}
		return strings.TrimSpace(r.line), nil
	}
}

// readLine returns the next input line. A single goroutine owns the
// underlying reader, so a read abandoned on cancellation is handed to the
// next caller instead of racing with it.
func (p *prompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan lineResult)
		go func() {
			defer close(p.lines)
			r := bufio.NewReader(p.in)
			for {
				line, err := r.ReadString('\n')
				p.lines <- lineResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return r.line, r.err
	}
}

// waitForEnter blocks until the operator presses Enter or input ends.
func (p *prompter) waitForEnter(msg string) {
	fmt.Fprint(p.out, msg)
	_, _ = p.readLine(context.Background()) //nolint:errcheck // any input, or none, ends the pause
}

// acquireToken returns the first token accepted by verify. A preset token
// (flag or environment) is tried first and counts as an attempt; the rest
// are read from the prompt. After maxAttempts rejections it gives up.
func acquireToken(ctx context.Context, p *prompter, preset string, maxAttempts int, verify tokenVerifier) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		token := preset
		preset = ""
		if token == "" {
			prompt := "Enter the admin token: "
			if attempt > 0 {
				prompt = fmt.Sprintf("Enter a valid admin token (%d attempt(s) left): ", maxAttempts-attempt)
			}

			var err error
			token, err = p.readSecret(ctx, prompt)
			if err != nil {
				return "", err
			}
		}

		if token != "" {
			err := verify(ctx, token)
			if err == nil {
				fmt.Fprintln(p.out, "Token accepted.")
				return token, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		fmt.Fprintf(p.out, "Invalid token (%d/%d).\n", attempt+1, maxAttempts)
	}
	return "", fmt.Errorf("%w after %d attempts", errTokenAttemptsExhausted, maxAttempts)
}
