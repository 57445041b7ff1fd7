package bootstrap

import (
	stderrors "errors"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/errors"
)

// InitLogger builds the structured logger described by cfg, writing to w
// (stdout when nil), and installs it as the slog default.
func InitLogger(cfg config.ObservabilityConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables. Variables in
// envFiles are loaded first without overriding the real environment; with no
// files given an optional .env in the working directory is used.
func LoadConfig(envFiles ...string) (config.AppConfig, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return config.AppConfig{}, err
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.ConfigurationWithCause("parse config", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	explicit := len(files) > 0
	if !explicit {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			var pathErr *os.PathError
			if !explicit && stderrors.As(err, &pathErr) {
				continue
			}
			return errors.ConfigurationWithCause("load env file "+f, err)
		}
	}
	return nil
}
