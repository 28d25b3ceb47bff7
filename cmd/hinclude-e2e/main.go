package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/tomyan/hinclude-e2e/internal/config"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1 // a scenario or session setup failed
	ExitSetup   = 2 // the run could not start
)

// Config holds the process plumbing commands run against.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    config.LookupFunc

	// IsTerminal reports whether Stdout is a terminal, for --format auto.
	IsTerminal func() bool
}

// DefaultConfig wires the real process environment.
func DefaultConfig() *Config {
	return &Config{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Env:    os.LookupEnv,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// ExitError carries an exit code out of a command. An empty Message prints
// nothing.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func setupError(message string, err error) *ExitError {
	return &ExitError{Code: ExitSetup, Message: message, Err: err}
}

func main() {
	os.Exit(run(os.Args[1:], DefaultConfig()))
}

func run(args []string, cfg *Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runContext(ctx, args, cfg)
}

func runContext(ctx context.Context, args []string, cfg *Config) int {
	root := newRootCommand(cfg)
	root.SetArgs(args)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Message != "" {
			fmt.Fprintf(cfg.Stderr, "error: %v\n", exitErr)
		}
		return exitErr.Code
	}
	fmt.Fprintf(cfg.Stderr, "error: %v\n", err)
	return ExitSetup
}
