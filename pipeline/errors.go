package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"TreeDetServer/classes"

	"github.com/pkg/errors"
)

// InputError reports a request that carries no usable image. It is raised
// before the detector is called.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("input error: %s: %v", e.Reason, e.Err)
	}
	return "input error: " + e.Reason
}

func (e *InputError) Unwrap() error { return e.Err }

// UpstreamError reports a detector failure.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "detector failed: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

var ErrPoolClosed = errors.New("worker pool closed")

var allowedExts = []string{".jpg", ".jpeg", ".png"}

// CheckFilename accepts jpg, jpeg and png uploads.
func CheckFilename(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return nil
		}
	}
	return &InputError{Reason: fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(allowedExts, ", "))}
}

// Kind names the error class for metrics and logs.
func Kind(err error) string {
	var (
		inputErr    *InputError
		upstreamErr *UpstreamError
		configErr   *classes.ConfigError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inputErr):
		return "input"
	case errors.As(err, &configErr):
		return "config"
	case errors.As(err, &upstreamErr):
		return "upstream"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
