// ticketflow-tui is the terminal front end. It runs one client against the
// configured backends; with Redis enabled the session survives restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/target/ticketflow/internal/bootstrap"
	"github.com/target/ticketflow/internal/tui"
)

// clientKey identifies the terminal client to the session persister.
const clientKey = "tui"

type options struct {
	envFiles []string
	logFile  string
	dataMode string
	authMode string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("ticketflow-tui", pflag.ContinueOnError)
	fs.StringSliceVar(&opts.envFiles, "env-file", nil, "load variables from this file (repeatable)")
	fs.StringVar(&opts.logFile, "log-file", "", "append logs to this file (default: discard)")
	fs.StringVar(&opts.dataMode, "data-mode", "", "override TICKETFLOW_DATA_MODE (rest, postgres, memory)")
	fs.StringVar(&opts.authMode, "auth-mode", "", "override TICKETFLOW_AUTH_MODE (gotrue, memory)")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return opts, nil
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	// Flags win over the environment and env files.
	if opts.dataMode != "" {
		if err := os.Setenv("TICKETFLOW_DATA_MODE", opts.dataMode); err != nil {
			return err
		}
	}
	if opts.authMode != "" {
		if err := os.Setenv("TICKETFLOW_AUTH_MODE", opts.authMode); err != nil {
			return err
		}
	}

	cfg, err := bootstrap.LoadConfig(opts.envFiles...)
	if err != nil {
		return err
	}

	// Log lines on the terminal would corrupt the alt screen.
	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := bootstrap.InitLogger(cfg.Observability, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.NewBackends(ctx, bootstrap.BackendOptions{Config: &cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backends.Close(); cerr != nil {
			logger.Error("close backends failed", "error", cerr)
		}
	}()

	app, release, err := backends.Open(ctx, clientKey)
	if err != nil {
		return err
	}
	defer release()

	program := tea.NewProgram(tui.NewModel(ctx, app), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
