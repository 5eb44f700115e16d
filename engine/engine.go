package engine

import (
	"context"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"TreeDetServer/classes"
	iface "TreeDetServer/interface"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const DefaultInputSize = 640

// Detector runs a YOLOv8 ONNX export through the OpenCV DNN module. The net is
// not safe for concurrent Forward calls, so Detect serializes on mu.
type Detector struct {
	mu        sync.Mutex
	ModelPath string
	Conf      float32
	Iou       float32
	InputSize int
	UseGPU    bool
	State     int
	net       gocv.Net
	loaded    bool
}

func NewDetector() *Detector {
	return &Detector{State: iface.REGISTERED, InputSize: DefaultInputSize}
}

func (d *Detector) CheckConfig() iface.EngineConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return iface.EngineConfig{
		Backend:   "dnn",
		ModelPath: d.ModelPath,
		Names:     classes.Names(),
		Conf:      d.Conf,
		Iou:       d.Iou,
		InputSize: d.InputSize,
		UseGPU:    d.UseGPU,
		State:     d.State,
	}
}

func (d *Detector) LoadModel(modelPath string, conf, iou float32, inputSize int, useGPU bool) error {
	if !strings.EqualFold(filepath.Ext(modelPath), ".onnx") {
		return errors.Errorf("dnn backend only supports .onnx models, got %q", modelPath)
	}
	if conf < 0 || conf > 1 {
		return errors.Errorf("confidence must be between 0.0 and 1.0, got %f", conf)
	}
	if iou < 0 || iou > 1 {
		return errors.Errorf("IoU must be between 0.0 and 1.0, got %f", iou)
	}
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		_ = net.Close()
		return errors.Errorf("failed to read model %s", modelPath)
	}
	if useGPU {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		_ = d.net.Close()
	}
	d.net = net
	d.loaded = true
	d.ModelPath = modelPath
	d.Conf = conf
	d.Iou = iou
	d.InputSize = inputSize
	d.UseGPU = useGPU
	d.State = iface.IDLE
	return nil
}

func (d *Detector) Destroy() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	if d.loaded {
		err = d.net.Close()
		d.loaded = false
	}
	d.ModelPath = ""
	d.Conf = 0
	d.Iou = 0
	d.UseGPU = false
	d.State = iface.UNREGISTERED
	return errors.Wrap(err, "close net")
}

func (d *Detector) Detect(ctx context.Context, img gocv.Mat) ([]iface.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Empty() {
		return nil, errors.New("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.State {
	case iface.UNREGISTERED:
		return nil, errors.New("detector not registered")
	case iface.REGISTERED:
		return nil, errors.New("model not loaded")
	}
	d.State = iface.BUSY
	defer func() { d.State = iface.IDLE }()

	size := d.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 || dims[0] != 1 || dims[1] <= 4 {
		return nil, errors.Errorf("unexpected model output shape %v", dims)
	}
	if nc := dims[1] - 4; nc != classes.Count {
		return nil, &classes.ConfigError{
			Index:  nc,
			Reason: "model class count does not match the label set",
		}
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read model output")
	}

	return decodeYOLOv8(data, dims[1], dims[2], yoloParams{
		conf:   d.Conf,
		iou:    d.Iou,
		scaleX: float32(img.Cols()) / float32(size),
		scaleY: float32(img.Rows()) / float32(size),
		width:  float32(img.Cols()),
		height: float32(img.Rows()),
	}), nil
}
