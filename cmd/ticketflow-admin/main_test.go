package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/ticketflow/config"
	"github.com/target/ticketflow/internal/adapters/redis"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/migrate"
)

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	require.Contains(t, out, "Usage: ticketflow-admin <command> [flags]")
	iMigrate := strings.Index(out, "  migrate ")
	iStatus := strings.Index(out, "  migrate-status")
	iClear := strings.Index(out, "  sessions-clear")
	iList := strings.Index(out, "  sessions-list")
	require.True(t, iMigrate >= 0 && iStatus >= 0 && iClear >= 0 && iList >= 0, out)
	assert.Less(t, iMigrate, iStatus)
	assert.Less(t, iStatus, iClear)
	assert.Less(t, iClear, iList)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags("migrate", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	opts, err = parseMigrateFlags("migrate", []string{"--timeout", "30s"})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, opts.Timeout)

	_, err = parseMigrateFlags("migrate", []string{"--timeout", "0s"})
	require.Error(t, err)

	_, err = parseMigrateFlags("migrate", []string{"--bogus"})
	require.Error(t, err)
}

func TestRenderMigrationStatus(t *testing.T) {
	var buf bytes.Buffer
	err := renderMigrationStatus(&buf, []migrate.Status{
		{Migration: migrate.Migration{Version: "0001_create_tickets"}, Applied: true},
		{Migration: migrate.Migration{Version: "0002_tickets_updated_at"}},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Regexp(t, `0001_create_tickets\s+applied`, out)
	assert.Regexp(t, `0002_tickets_updated_at\s+pending`, out)
	assert.Contains(t, out, "1 of 2 pending")
}

func TestRenderSessions(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	var empty bytes.Buffer
	require.NoError(t, renderSessions(&empty, nil, now))
	assert.Equal(t, "(no sessions found)\n", empty.String())

	var buf bytes.Buffer
	err := renderSessions(&buf, []redis.StoredSession{
		{
			Key:     "0123456789abcdef0123",
			Session: domainauth.Session{UserID: "u1", Email: "a@example.com", ExpiresAt: now.Add(time.Hour)},
			TTL:     90 * time.Minute,
		},
		{
			Key:     "short",
			Session: domainauth.Session{UserID: "u2", Email: "b@example.com", ExpiresAt: now.Add(-time.Minute)},
			TTL:     time.Minute,
		},
	}, now)
	require.NoError(t, err)

	out := buf.String()
	assert.Regexp(t, `01234567…\s+a@example.com\s+u1\s+valid\s+1h30m0s`, out)
	assert.Regexp(t, `short\s+b@example.com\s+u2\s+expired\s+1m0s`, out)
	assert.NotContains(t, out, "0123456789abcdef0123")
	assert.Contains(t, out, "Total sessions: 2")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "y\n"},
		{input: "YES\n"},
		{input: " yes "},
		{input: "n\n", wantErr: true},
		{input: "\n", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			err := confirm(strings.NewReader(tt.input), &out, "Proceed?")
			assert.Equal(t, "Proceed? [y/N]: ", out.String())
			if tt.wantErr {
				require.ErrorIs(t, err, errAborted)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSessionCommandsRequireRedis(t *testing.T) {
	var out bytes.Buffer
	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: config.AppConfig{},
		Stdout: &out,
		Stdin:  strings.NewReader(""),
	}

	err := runListSessions(cmdCtx, nil)
	require.ErrorContains(t, err, "redis is not enabled")

	err = runClearSessions(cmdCtx, []string{"--yes"})
	require.ErrorContains(t, err, "redis is not enabled")

	// Without --yes an unanswered prompt aborts before connecting.
	err = runClearSessions(cmdCtx, nil)
	require.ErrorIs(t, err, errAborted)
}
