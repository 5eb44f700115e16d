package iface

import (
	"context"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Detector states reported by CheckConfig.
const (
	UNREGISTERED = 0x0001
	REGISTERED   = 0x0002
	IDLE         = 0x0003
	BUSY         = 0x0004
)

type Position struct {
	X, Y float32
}

// Box is an axis aligned rectangle in pixel space, LT top-left and RB bottom-right.
type Box struct {
	LT Position
	RB Position
}

// NewBox builds a Box from x1, y1, x2, y2.
func NewBox(x1, y1, x2, y2 float32) Box {
	return Box{LT: Position{X: x1, Y: y1}, RB: Position{X: x2, Y: y2}}
}

func (b Box) Width() float32  { return b.RB.X - b.LT.X }
func (b Box) Height() float32 { return b.RB.Y - b.LT.Y }

// Rect rounds the box to integer pixel coordinates. Degenerate boxes are kept as is.
func (b Box) Rect() image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(round(b.LT.X), round(b.LT.Y)),
		Max: image.Pt(round(b.RB.X), round(b.RB.Y)),
	}
}

func round(v float32) int {
	return int(math.Round(float64(v)))
}

// Detection is one object reported by a detector. Class is the raw model class
// index; it is resolved to a label by the caller.
type Detection struct {
	Box   Box
	Class int
	Conf  float32
}

type EngineConfig struct {
	Backend   string
	ModelPath string
	Names     []string
	Conf      float32
	Iou       float32
	InputSize int
	UseGPU    bool
	State     int
}

// Backend is an object detector. Detect must not modify img.
type Backend interface {
	Detect(ctx context.Context, img gocv.Mat) ([]Detection, error)
	CheckConfig() EngineConfig
	Destroy() error
}
