package bootstrap

import (
	"io"
	"log/slog"

	"github.com/target/ticketflow/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryConfig runs everything in process on a random port.
func memoryConfig() *config.AppConfig {
	cfg := &config.AppConfig{
		Backend: config.BackendConfig{
			AuthMode: config.AuthModeMemory,
			DataMode: config.DataModeMemory,
		},
		HTTP:          config.HTTPConfig{Addr: "127.0.0.1:0"},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
	}
	cfg.Sanitize()
	return cfg
}
