package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	t.Run("falls back to the zap global", func(t *testing.T) {
		assert.NotNil(t, Log())
	})

	t.Run("development replaces globals", func(t *testing.T) {
		require.NoError(t, Init(true))
		assert.Same(t, Log(), zap.L())
		assert.NotNil(t, Named(Pipeline))
		Sync()
	})

	t.Run("production", func(t *testing.T) {
		require.NoError(t, Init(false))
		assert.Same(t, Log(), zap.L())
	})
}

func TestNewConfig(t *testing.T) {
	dev := newConfig(true)
	prod := newConfig(false)
	assert.True(t, dev.Development)
	assert.Equal(t, "console", dev.Encoding)
	assert.Equal(t, "json", prod.Encoding)
	for _, cfg := range []zap.Config{dev, prod} {
		assert.Equal(t, "timestamp", cfg.EncoderConfig.TimeKey)
		assert.Equal(t, service, cfg.InitialFields["service"])
	}
}

func TestForRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logMu.Lock()
	prev := log
	log = zap.New(core)
	logMu.Unlock()
	t.Cleanup(func() {
		logMu.Lock()
		log = prev
		logMu.Unlock()
	})

	ForRequest(GRPC, "req-1").Info("call")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, GRPC, entries[0].LoggerName)
	assert.Equal(t, "req-1", entries[0].ContextMap()[requestID])
}
