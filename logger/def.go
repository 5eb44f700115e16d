package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names passed to Named. Each subsystem logs under exactly one.
const (
	HTTP      = "http"
	WS        = "ws"
	GRPC      = "grpc"
	Pipeline  = "pipeline"
	Pool      = "pool"
	Engine    = "engine"
	Adhoc     = "adhoc"
	Monitor   = "monitor"
	service   = "treedet"
	requestID = "id"
)

var (
	logMu sync.RWMutex
	log   *zap.Logger
)

// newConfig returns the console config in development and JSON otherwise. Both
// use an ISO8601 "timestamp" key and tag every entry with the service name.
func newConfig(development bool) zap.Config {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"service": service}
	return cfg
}

// Init builds the process logger and installs it as zap's global.
func Init(development bool) error {
	l, err := newConfig(development).Build()
	if err != nil {
		return err
	}
	logMu.Lock()
	defer logMu.Unlock()
	if log != nil {
		_ = log.Sync()
	}
	zap.ReplaceGlobals(l)
	log = l
	return nil
}

// Log returns the process logger, or zap's global (a no-op until Init) when none is set.
func Log() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		return log
	}
	return zap.L()
}

// Sync flushes buffered entries.
func Sync() {
	logMu.RLock()
	defer logMu.RUnlock()
	if log != nil {
		_ = log.Sync()
	}
}

// Named returns a child of the process logger for one of the component names above.
func Named(component string) *zap.Logger {
	return Log().Named(component)
}

// ForRequest is Named with the request id attached.
func ForRequest(component, id string) *zap.Logger {
	return Named(component).With(zap.String(requestID, id))
}
