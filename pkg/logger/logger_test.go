package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/logger"
)

func TestWithCtxReturnsInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	reqLog := logger.New(&buf, true, slog.LevelInfo).With("request_id", "abc")

	ctx := logger.InjectLogger(context.Background(), reqLog)
	logger.WithCtx(ctx).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["request_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestWithCtxFallsBackToBase(t *testing.T) {
	assert.Same(t, logger.L, logger.WithCtx(context.Background()))
}

func TestSetupWritesRotatedFile(t *testing.T) {
	prev := logger.L
	t.Cleanup(func() { logger.L = prev; slog.SetDefault(prev) })

	file := filepath.Join(t.TempDir(), "storefront.log")
	closer := logger.Setup(config.AppConfig{Env: "production"}, config.LogConfig{
		Level: "warn", File: file, MaxSizeMB: 1, MaxBackups: 1,
	})
	defer closer.Close()

	assert.False(t, logger.L.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.L.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("disk nearly full")
	assert.FileExists(t, file)
}
