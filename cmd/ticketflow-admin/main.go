package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/adapters/redis"
	"github.com/target/ticketflow/internal/bootstrap"
	"github.com/target/ticketflow/internal/migrate"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Stdout io.Writer
	Stdin  io.Reader
}

const defaultMigrationTimeout = 5 * time.Minute

var errAborted = errors.New("aborted")

func main() {
	if len(os.Args) < 2 {
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when no command is provided
	}

	cmdName := os.Args[1]
	cmd, ok := commands()[cmdName]
	if !ok {
		if err := writef(os.Stderr, "unknown command %q\n\n", cmdName); err != nil {
			slog.Error("print unknown command message failed", "error", err)
		}
		if err := printUsage(os.Stdout); err != nil {
			slog.Error("print usage failed", "error", err)
		}
		os.Exit(2) //nolint:forbidigo // CLI must exit with failure status when command is unknown
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.Observability, os.Stderr)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Stdout: os.Stdout,
		Stdin:  os.Stdin,
	}
	if runErr := cmd.run(cmdCtx, os.Args[2:]); runErr != nil {
		if errors.Is(runErr, pflag.ErrHelp) {
			return
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "command", cmdName, "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply pending database migrations",
			run:         runMigrations,
		},
		"migrate-status": {
			name:        "migrate-status",
			description: "List embedded migrations and whether each is applied",
			run:         runMigrationStatus,
		},
		"sessions-list": {
			name:        "sessions-list",
			description: "List persisted sessions in Redis",
			run:         runListSessions,
		},
		"sessions-clear": {
			name:        "sessions-clear",
			description: "Delete every persisted session, signing all clients out on restart",
			run:         runClearSessions,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: ticketflow-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

type migrateOptions struct {
	Timeout time.Duration
}

func parseMigrateFlags(name string, args []string) (migrateOptions, error) {
	opts := migrateOptions{Timeout: defaultMigrationTimeout}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, fmt.Errorf("--timeout must be positive, got %s", opts.Timeout)
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags("migrate", args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return bootstrap.RunMigrations(ctx, db, cmdCtx.Logger)
}

func runMigrationStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags("migrate-status", args)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, opts.Timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	statuses, err := migrate.Pending(ctx, db)
	if err != nil {
		return err
	}
	return renderMigrationStatus(cmdCtx.Stdout, statuses)
}

func renderMigrationStatus(w io.Writer, statuses []migrate.Status) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "VERSION\tSTATE\n"); err != nil {
		return err
	}
	pending := 0
	for _, s := range statuses {
		state := "applied"
		if !s.Applied {
			state = "pending"
			pending++
		}
		if err := writef(tw, "%s\t%s\n", s.Version, state); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\n%d of %d pending\n", pending, len(statuses))
}

// openSessionStore connects to Redis, which must be enabled for the session commands.
func openSessionStore(cmdCtx *commandContext) (*redis.SessionStore, func(), error) {
	if !cmdCtx.Config.Redis.Enabled {
		return nil, nil, errors.New("redis is not enabled (set REDIS_ENABLED=true)")
	}
	client, err := bootstrap.ConnectRedis(cmdCtx.Ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	closeFn := func() {
		if closeErr := client.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", closeErr)
		}
	}
	return redis.NewSessionStore(client, redis.WithTTL(cmdCtx.Config.Redis.SessionTTL)), closeFn, nil
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	fs := pflag.NewFlagSet("sessions-list", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	store, closeFn, err := openSessionStore(cmdCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()
	sessions, err := store.List(ctx)
	if err != nil {
		return err
	}
	return renderSessions(cmdCtx.Stdout, sessions, time.Now())
}

func renderSessions(w io.Writer, sessions []redis.StoredSession, now time.Time) error {
	if len(sessions) == 0 {
		return writef(w, "(no sessions found)\n")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "KEY\tEMAIL\tUSER\tACCESS TOKEN\tKEPT FOR\n"); err != nil {
		return err
	}
	for _, s := range sessions {
		access := "valid"
		if s.Session.Expired(now) {
			access = "expired"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortKey(s.Key), s.Session.Email, s.Session.UserID, access, s.TTL.Round(time.Second)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\nTotal sessions: %d\n", len(sessions))
}

// shortKey keeps client keys recognisable without printing the full cookie value.
func shortKey(k string) string {
	if len(k) <= 12 {
		return k
	}
	return k[:8] + "…"
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	var yes bool
	fs := pflag.NewFlagSet("sessions-clear", pflag.ContinueOnError)
	fs.BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !yes {
		if err := confirm(cmdCtx.Stdin, cmdCtx.Stdout, "Delete every persisted session?"); err != nil {
			return err
		}
	}

	store, closeFn, err := openSessionStore(cmdCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()
	n, err := store.Clear(ctx)
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("sessions cleared", "deleted", n)
	return writef(cmdCtx.Stdout, "Deleted %d sessions\n", n)
}

func confirm(in io.Reader, out io.Writer, prompt string) error {
	if err := writef(out, "%s [y/N]: ", prompt); err != nil {
		return err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
