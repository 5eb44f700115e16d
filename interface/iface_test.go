package iface

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox(t *testing.T) {
	b := NewBox(10.4, 10.6, 50, 60)
	assert.Equal(t, image.Rect(10, 11, 50, 60), b.Rect())
	assert.InDelta(t, 39.6, b.Width(), 1e-4)
	assert.InDelta(t, 49.4, b.Height(), 1e-4)

	degenerate := NewBox(5, 5, 5, 20)
	assert.Equal(t, 0, degenerate.Rect().Dx())
}
