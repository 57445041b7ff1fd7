package bootstrap

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/errors"
)

// unsetAfter restores keys that godotenv may set during the test.
func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if _, ok := os.LookupEnv(k); ok {
			t.Fatalf("%s is already set in the test environment", k)
		}
	}
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoadConfig_MemoryModesNeedNoBackend(t *testing.T) {
	t.Setenv("TICKETFLOW_AUTH_MODE", "memory")
	t.Setenv("TICKETFLOW_DATA_MODE", "Memory")
	t.Setenv("TICKETFLOW_BACKEND_URL", "")
	t.Setenv("TOAST_DURATION", "2s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.AuthModeMemory, cfg.Backend.AuthMode)
	assert.Equal(t, config.DataModeMemory, cfg.Backend.DataMode)
	assert.False(t, cfg.Backend.UsesHostedBackend())
	assert.Equal(t, 2*time.Second, cfg.UI.ToastDuration)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadConfig_HostedBackendRequiresURL(t *testing.T) {
	t.Setenv("TICKETFLOW_AUTH_MODE", "gotrue")
	t.Setenv("TICKETFLOW_DATA_MODE", "memory")
	t.Setenv("TICKETFLOW_BACKEND_URL", "")
	t.Setenv("TICKETFLOW_BACKEND_ANON_KEY", "anon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Contains(t, err.Error(), "TICKETFLOW_BACKEND_URL")
}

func TestLoadConfig_RejectsUnknownMode(t *testing.T) {
	t.Setenv("TICKETFLOW_DATA_MODE", "sqlite")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestLoadConfig_EnvFile(t *testing.T) {
	unsetAfter(t, "TICKETFLOW_BACKEND_URL", "TICKETFLOW_BACKEND_ANON_KEY")
	t.Setenv("TICKETFLOW_AUTH_MODE", "gotrue")
	t.Setenv("TICKETFLOW_DATA_MODE", "rest")

	path := filepath.Join(t.TempDir(), "test.env")
	content := strings.Join([]string{
		"TICKETFLOW_BACKEND_URL=https://project.example.co/",
		"TICKETFLOW_BACKEND_ANON_KEY=anon-key",
		"TICKETFLOW_AUTH_MODE=memory", // the real environment wins
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://project.example.co", cfg.Backend.URL)
	assert.Equal(t, "anon-key", cfg.Backend.AnonKey)
	assert.Equal(t, "https://project.example.co/auth/v1", cfg.Backend.JWTIssuer)
	assert.Equal(t, config.AuthModeGoTrue, cfg.Backend.AuthMode)
}

func TestLoadConfig_MissingExplicitEnvFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestInitLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLogger(config.ObservabilityConfig{LogLevel: "warn", LogFormat: "json"}, &buf)
		logger.Info("hidden")
		logger.Warn("shown", "component", "test")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), `"msg":"shown"`)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := InitLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "text"}, &buf)
		logger.Debug("details")
		assert.Contains(t, buf.String(), "msg=details")
	})
}
