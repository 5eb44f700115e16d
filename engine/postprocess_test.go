package engine

import (
	"testing"

	iface "TreeDetServer/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// head builds a [4+nc, n] output from per-anchor rows of cx, cy, w, h, scores...
func head(nc int, anchors ...[]float32) []float32 {
	rows, cols := 4+nc, len(anchors)
	data := make([]float32, rows*cols)
	for j, a := range anchors {
		for r := 0; r < rows; r++ {
			data[r*cols+j] = a[r]
		}
	}
	return data
}

func TestDecodeYOLOv8(t *testing.T) {
	p := yoloParams{conf: 0.25, iou: 0.45, scaleX: 2, scaleY: 1, width: 1280, height: 640}
	data := head(5,
		[]float32{100, 100, 40, 20, 0.1, 0.9, 0, 0, 0},  // Grass
		[]float32{102, 101, 40, 20, 0.1, 0.8, 0, 0, 0},  // Grass, overlaps the first
		[]float32{102, 101, 40, 20, 0.7, 0.0, 0, 0, 0},  // Dead, same place, other class
		[]float32{300, 300, 10, 10, 0, 0, 0, 0.2, 0.1},  // below conf
		[]float32{635, 5, 20, 20, 0, 0, 0.6, 0, 0},      // Healthy, clipped to the image
	)

	dets := decodeYOLOv8(data, 9, 5, p)
	require.Len(t, dets, 3)

	assert.Equal(t, 1, dets[0].Class)
	assert.Equal(t, float32(0.9), dets[0].Conf)
	assert.Equal(t, iface.NewBox(160, 90, 240, 110), dets[0].Box)

	assert.Equal(t, 0, dets[1].Class)
	assert.Equal(t, float32(0.7), dets[1].Conf)

	assert.Equal(t, 2, dets[2].Class)
	assert.Equal(t, iface.NewBox(1250, 0, 1280, 15), dets[2].Box)
}

func TestDecodeYOLOv8_BadShape(t *testing.T) {
	assert.Nil(t, decodeYOLOv8(make([]float32, 8), 4, 2, yoloParams{}))
	assert.Nil(t, decodeYOLOv8(make([]float32, 8), 9, 2, yoloParams{}))
}

func TestNMS(t *testing.T) {
	dets := []iface.Detection{
		{Box: iface.NewBox(0, 0, 10, 10), Class: 0, Conf: 0.5},
		{Box: iface.NewBox(0, 0, 10, 10), Class: 0, Conf: 0.9},
		{Box: iface.NewBox(5, 5, 15, 15), Class: 0, Conf: 0.8},
	}
	keep := nms(dets, 0.45)
	require.Len(t, keep, 2)
	assert.Equal(t, float32(0.9), keep[0].Conf)
	assert.Equal(t, float32(0.8), keep[1].Conf)
}

func TestOverlap(t *testing.T) {
	a := iface.NewBox(0, 0, 10, 10)
	assert.Equal(t, float32(1), overlap(a, a))
	assert.Equal(t, float32(0), overlap(a, iface.NewBox(10, 0, 20, 10)))
	assert.InDelta(t, 25.0/175.0, overlap(a, iface.NewBox(5, 5, 15, 15)), 1e-6)
	assert.Equal(t, float32(0), overlap(iface.NewBox(0, 0, 0, 0), iface.NewBox(0, 0, 0, 0)))
}
