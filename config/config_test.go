package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
httpPort: 9090
workersNum: 0
detector:
  backend: remote
  inferenceURL: http://localhost:5000/predict
  conf: 0.4
labels:
  namesFile: model/classes.txt
render:
  fontScale: 0.6
  lineThickness: 0
registry:
  enabled: true
  host: 10.0.0.2
  port: 7000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 50051, cfg.RPCPort)
	assert.Equal(t, 1, cfg.WorkersNum)
	assert.Equal(t, BackendRemote, cfg.Detector.Backend)
	assert.Equal(t, float32(0.4), cfg.Detector.Conf)
	assert.Equal(t, float32(0.45), cfg.Detector.Iou)
	assert.Equal(t, 640, cfg.Detector.InputSize)
	assert.Equal(t, 30*time.Second, cfg.Detector.Timeout())
	assert.Equal(t, "model/classes.txt", cfg.Labels.NamesFile)
	assert.Equal(t, 5*time.Second, cfg.Registry.Interval())
	assert.Equal(t, Render{FontScale: 0.6, LineThickness: 2, LabelAlpha: 0.5}, cfg.Render)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  string
	}{
		{"defaults", ``, ""},
		{"bad yaml", `httpPort: [`, "parse config file"},
		{"conf range", "detector:\n  conf: 1.5", "confidence"},
		{"iou range", "detector:\n  iou: -0.1", "IoU"},
		{"dnn without model", "detector:\n  modelPath: \"\"", "modelPath"},
		{"remote without url", "detector:\n  backend: remote", "inferenceURL"},
		{"unknown backend", "detector:\n  backend: tflite", "unsupported detector backend"},
		{"label alpha", "render:\n  labelAlpha: 1.5", "labelAlpha"},
		{"port range", "rpcPort: 70000", "rpcPort"},
		{"registry host", "registry:\n  enabled: true", "registry.host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.err)
		})
	}
}
