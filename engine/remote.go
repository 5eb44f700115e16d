package engine

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"sync/atomic"
	"time"

	"TreeDetServer/classes"
	iface "TreeDetServer/interface"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// RemoteDetector forwards images to an HTTP inference service.
type RemoteDetector struct {
	URL    string
	client *resty.Client
	state  atomic.Int32
}

// Pointer fields tell a missing key apart from a zero value.
type remoteDetection struct {
	Box        []float32 `json:"box"`
	Class      *int      `json:"class"`
	Confidence *float32  `json:"confidence"`
}

type remoteResponse struct {
	Detections *[]remoteDetection `json:"detections"`
}

func NewRemoteDetector(inferenceURL string, timeout time.Duration) *RemoteDetector {
	r := &RemoteDetector{
		URL:    inferenceURL,
		client: resty.New().SetTimeout(timeout),
	}
	r.state.Store(iface.IDLE)
	return r
}

func (r *RemoteDetector) CheckConfig() iface.EngineConfig {
	return iface.EngineConfig{
		Backend:   "remote",
		ModelPath: r.URL,
		Names:     classes.Names(),
		State:     int(r.state.Load()),
	}
}

func (r *RemoteDetector) Detect(ctx context.Context, img gocv.Mat) ([]iface.Detection, error) {
	if r.state.Load() == iface.UNREGISTERED {
		return nil, errors.New("detector not registered")
	}
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, errors.Wrap(err, "encode image")
	}
	defer buf.Close()

	resp, err := r.client.R().
		SetContext(ctx).
		SetFileReader("file", "image.png", bytes.NewReader(buf.GetBytes())).
		Post(r.URL)
	if err != nil {
		return nil, errors.Wrap(err, "inference request")
	}
	if resp.IsError() {
		return nil, errors.Errorf("inference service returned %s: %s", resp.Status(), resp.String())
	}
	return r.decode(resp.Body())
}

// decode parses the reply body whatever its Content-Type and rejects replies
// that are not exactly {"detections":[{"box":[x1,y1,x2,y2],"class":i,"confidence":c}]}.
func (r *RemoteDetector) decode(body []byte) ([]iface.Detection, error) {
	var out remoteResponse
	if err := r.client.JSONUnmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decode inference reply")
	}
	if out.Detections == nil {
		return nil, errors.New("inference reply has no detections field")
	}

	dets := make([]iface.Detection, 0, len(*out.Detections))
	for i, d := range *out.Detections {
		switch {
		case len(d.Box) != 4:
			return nil, errors.Errorf("detection %d: box has %d values, want 4", i, len(d.Box))
		case d.Class == nil:
			return nil, errors.Errorf("detection %d: missing class", i)
		case d.Confidence == nil:
			return nil, errors.Errorf("detection %d: missing confidence", i)
		}
		dets = append(dets, iface.Detection{
			Box:   iface.NewBox(d.Box[0], d.Box[1], d.Box[2], d.Box[3]),
			Class: *d.Class,
			Conf:  *d.Confidence,
		})
	}
	return dets, nil
}

// CheckHealth checks the /health endpoint next to the inference URL.
func (r *RemoteDetector) CheckHealth(ctx context.Context) error {
	u, err := url.Parse(r.URL)
	if err != nil {
		return errors.Wrap(err, "parse inference url")
	}
	u.Path = path.Join(path.Dir(u.Path), "health")
	resp, err := r.client.R().SetContext(ctx).Get(u.String())
	if err != nil {
		return errors.Wrap(err, "health request")
	}
	if resp.IsError() {
		return errors.Errorf("inference service unhealthy: %s", resp.Status())
	}
	return nil
}

func (r *RemoteDetector) Destroy() error {
	r.state.Store(iface.UNREGISTERED)
	return nil
}
