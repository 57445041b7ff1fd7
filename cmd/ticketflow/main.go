package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/ticketflow"
	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.ErrorContext(ctx, "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	logger := bootstrap.InitLogger(cfg.Observability, os.Stdout)

	if err := run(ctx, logger, &cfg); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) error {
	logStartupInfo(ctx, logger, cfg)

	m := bootstrap.NewMetrics(cfg.Observability)
	backends, err := bootstrap.NewBackends(ctx, bootstrap.BackendOptions{
		Config:  cfg,
		Logger:  logger,
		Metrics: m.Collector,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := backends.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close backends failed", "error", cerr)
		}
	}()

	templates, static, err := frontendFS(cfg.IsDev)
	if err != nil {
		return err
	}

	srv, err := bootstrap.NewHTTPServer(bootstrap.HTTPServerConfig{
		Config:    cfg,
		Backends:  backends,
		Metrics:   m,
		Templates: templates,
		Static:    static,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	// The signal context is already done; give shutdown a fresh one.
	return srv.Shutdown(context.WithoutCancel(ctx))
}

// frontendFS serves templates and static files from disk in dev mode so
// edits show up on reload, and the embedded copies otherwise.
func frontendFS(dev bool) (fs.FS, fs.FS, error) {
	if dev {
		return os.DirFS("frontend/templates"), os.DirFS("frontend/static"), nil
	}
	templates, err := fs.Sub(ticketflow.TemplateFS, "frontend/templates")
	if err != nil {
		return nil, nil, fmt.Errorf("templates fs: %w", err)
	}
	static, err := fs.Sub(ticketflow.StaticFS, "frontend/static")
	if err != nil {
		return nil, nil, fmt.Errorf("static fs: %w", err)
	}
	return templates, static, nil
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting ticketflow",
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Backend.AuthMode,
		"data_mode", cfg.Backend.DataMode,
		"dev", cfg.IsDev,
		"metrics", cfg.Observability.MetricsEnabled,
	)
}
