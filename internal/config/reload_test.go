package config

import (
	"os"
	"path/filepath"
	"testing"

	"taskReminder/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Logger
	logger.Logger = zap.New(core)
	t.Cleanup(func() { logger.Logger = prev })
	return logs
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("reminder:\n  fire_hour: 9\n"), 0o644))

	_, v, err := Load(path)
	require.NoError(t, err)
	event := fsnotify.Event{Name: path, Op: fsnotify.Write}

	t.Run("valid change is applied", func(t *testing.T) {
		logs := observeLogs(t)
		v.Set("reminder.fire_hour", 7)

		var got *Config
		reload(v, event, func(c *Config, _ fsnotify.Event) { got = c })

		require.NotNil(t, got)
		assert.Equal(t, 7, got.Reminder.FireHour)
		assert.Zero(t, logs.Len())
	})

	t.Run("invalid change is rejected and logged", func(t *testing.T) {
		logs := observeLogs(t)
		v.Set("server.rate_limit", 0)

		called := false
		reload(v, event, func(*Config, fsnotify.Event) { called = true })

		assert.False(t, called)
		entries := logs.FilterMessage("Config: reload rejected").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, path, entries[0].ContextMap()["file"])
		assert.Contains(t, entries[0].ContextMap()["error"], "rate_limit")
	})
}
