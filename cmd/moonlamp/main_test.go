package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoonLamp/internal/config"
	"MoonLamp/internal/recorder"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.DataSource.Provider = "mock"
	cfg.DataSource.MockPrice = 2500
	cfg.Serial.Port = ""
	cfg.MQTT.Broker = ""
	cfg.Telegram.BotToken = ""
	cfg.Database.SQLitePath = filepath.Join(dir, "moonlamp.db")
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func TestRun_RegisterErrorReturns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.PurgeCron = "not a cron"

	err := run(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register cron tasks")
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx, cfg, zerolog.Nop()) }()

	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	rec, err := recorder.NewSQLiteRecorder(zerolog.Nop(), cfg.Database.SQLitePath)
	require.NoError(t, err)
	defer rec.Close()
	points, err := rec.RecentPrices(cfg.DataSource.Symbol, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.Equal(t, 2500.0, points[0].Price)
}

func TestWriteHeader(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "config.h")
	require.NoError(t, writeHeader(cfg, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define CHECK_INTERVAL 60000")
}
