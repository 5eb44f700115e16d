package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"TreeDetServer/config"
	iface "TreeDetServer/interface"
	"TreeDetServer/logger"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Loader func() (iface.Backend, error)

// Lazy loads its backend on first use. Concurrent first callers share one load,
// and a failed load is remembered: every later call returns the same error.
type Lazy struct {
	once    sync.Once
	load    Loader
	backend iface.Backend
	err     error
	done    atomic.Bool
}

func NewLazy(load Loader) *Lazy {
	return &Lazy{load: load}
}

// FromConfig returns a Lazy that builds the configured backend. A remote
// backend must pass its health check to load.
func FromConfig(cfg config.Detector) *Lazy {
	return NewLazy(func() (iface.Backend, error) {
		switch cfg.Backend {
		case config.BackendRemote:
			r := NewRemoteDetector(cfg.InferenceURL, cfg.Timeout())
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
			defer cancel()
			if err := r.CheckHealth(ctx); err != nil {
				return nil, errors.Wrap(err, "inference service health check")
			}
			return r, nil
		case config.BackendDNN:
			d := NewDetector()
			if err := d.LoadModel(cfg.ModelPath, cfg.Conf, cfg.Iou, cfg.InputSize, cfg.UseGPU); err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, errors.Errorf("unsupported backend: %s", cfg.Backend)
		}
	})
}

func (l *Lazy) Get() (iface.Backend, error) {
	l.once.Do(func() {
		l.backend, l.err = l.load()
		if l.err != nil {
			l.err = errors.Wrap(l.err, "load detector")
			logger.Named(logger.Engine).Error("detector load failed", zap.Error(l.err))
		} else {
			logger.Named(logger.Engine).Info("detector loaded", zap.String("backend", l.backend.CheckConfig().Backend))
		}
		l.done.Store(true)
	})
	return l.backend, l.err
}

func (l *Lazy) Detect(ctx context.Context, img gocv.Mat) ([]iface.Detection, error) {
	b, err := l.Get()
	if err != nil {
		return nil, err
	}
	return b.Detect(ctx, img)
}

// CheckConfig reports UNREGISTERED until the backend has been loaded.
func (l *Lazy) CheckConfig() iface.EngineConfig {
	if !l.done.Load() || l.backend == nil {
		return iface.EngineConfig{State: iface.UNREGISTERED}
	}
	return l.backend.CheckConfig()
}

func (l *Lazy) Destroy() error {
	if !l.done.Load() || l.backend == nil {
		return nil
	}
	return l.backend.Destroy()
}
