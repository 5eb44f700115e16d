package engine

import (
	"context"
	"testing"

	iface "TreeDetServer/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDetector_All(t *testing.T) {
	d := NewDetector()

	t.Run("Test New", func(t *testing.T) {
		cfg := d.CheckConfig()
		assert.Equal(t, iface.REGISTERED, cfg.State)
		assert.Equal(t, "dnn", cfg.Backend)
		assert.Equal(t, DefaultInputSize, cfg.InputSize)
		assert.Len(t, cfg.Names, 5)
	})

	t.Run("Test LoadModel rejects bad arguments", func(t *testing.T) {
		assert.ErrorContains(t, d.LoadModel("model/best.param", 0.25, 0.45, 640, false), ".onnx")
		assert.ErrorContains(t, d.LoadModel("model/best.onnx", 1.2, 0.45, 640, false), "confidence")
		assert.ErrorContains(t, d.LoadModel("model/best.onnx", 0.25, -1, 640, false), "IoU")
		assert.Equal(t, iface.REGISTERED, d.CheckConfig().State)
	})

	t.Run("Test Detect before load", func(t *testing.T) {
		img := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
		defer img.Close()
		_, err := d.Detect(context.Background(), img)
		assert.ErrorContains(t, err, "model not loaded")
	})

	t.Run("Test Detect cancelled", func(t *testing.T) {
		img := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
		defer img.Close()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := d.Detect(ctx, img)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Test Destroy", func(t *testing.T) {
		require.NoError(t, d.Destroy())
		cfg := d.CheckConfig()
		assert.Equal(t, "", cfg.ModelPath)
		assert.Equal(t, float32(0), cfg.Conf)
		assert.Equal(t, iface.UNREGISTERED, cfg.State)

		img := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
		defer img.Close()
		_, err := d.Detect(context.Background(), img)
		assert.ErrorContains(t, err, "not registered")
	})
}
