// Package pipeline turns encoded image bytes into an annotated PNG and a per
// class tally: decode, detect, annotate, encode.
package pipeline

import (
	"context"
	"time"

	"TreeDetServer/annotator"
	"TreeDetServer/classes"
	iface "TreeDetServer/interface"
	"TreeDetServer/logger"
	"TreeDetServer/monitor"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

type Detection struct {
	Label      string     `json:"label"`
	Box        [4]float32 `json:"box"`
	Confidence float32    `json:"confidence"`
}

// Output is the result of one request. Image holds PNG bytes and is base64
// encoded when marshalled to JSON.
type Output struct {
	ID         string            `json:"id"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Counts     []annotator.Entry `json:"counts"`
	Total      int               `json:"total"`
	Detections []Detection       `json:"detections"`
	Image      []byte            `json:"image"`
}

type Pipeline struct {
	backend   iface.Backend
	annotator *annotator.Annotator
}

func New(backend iface.Backend, a *annotator.Annotator) *Pipeline {
	if a == nil {
		a = annotator.New()
	}
	return &Pipeline{backend: backend, annotator: a}
}

func (p *Pipeline) Backend() iface.Backend {
	return p.backend
}

// Run annotates one encoded image. transport labels the request in metrics.
func (p *Pipeline) Run(ctx context.Context, transport string, data []byte) (*Output, error) {
	id := uuid.NewString()
	log := logger.ForRequest(logger.Pipeline, id).With(zap.String("transport", transport))
	monitor.RequestsTotal.WithLabelValues(transport).Inc()

	start := time.Now()
	out, err := p.run(ctx, data)
	if err != nil {
		kind := Kind(err)
		monitor.FailuresTotal.WithLabelValues(kind).Inc()
		log.Error("annotate failed", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	out.ID = id
	log.Info("annotated",
		zap.Int("width", out.Width),
		zap.Int("height", out.Height),
		zap.Int("total", out.Total),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, data []byte) (*Output, error) {
	if len(data) == 0 {
		return nil, &InputError{Reason: "no image provided"}
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || img.Empty() {
		_ = img.Close()
		return nil, &InputError{Reason: "image could not be decoded", Err: err}
	}
	defer img.Close()

	inferStart := time.Now()
	dets, err := p.backend.Detect(ctx, img)
	monitor.InferenceDuration.Observe(time.Since(inferStart).Seconds())
	if err != nil {
		var configErr *classes.ConfigError
		switch {
		case errors.As(err, &configErr):
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, &UpstreamError{Err: err}
		}
	}

	res, err := p.annotator.Annotate(img, dets)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, res.Image)
	if err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	png := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	for l, n := range res.Counts {
		if n > 0 {
			monitor.DetectionsTotal.WithLabelValues(l.String()).Add(float64(n))
		}
	}

	out := &Output{
		Width:      img.Cols(),
		Height:     img.Rows(),
		Counts:     res.Counts.Entries(),
		Total:      res.Total,
		Detections: make([]Detection, 0, len(res.Annotations)),
		Image:      png,
	}
	for _, a := range res.Annotations {
		out.Detections = append(out.Detections, Detection{
			Label:      a.Label.String(),
			Box:        [4]float32{a.Box.LT.X, a.Box.LT.Y, a.Box.RB.X, a.Box.RB.Y},
			Confidence: a.Conf,
		})
	}
	return out, nil
}
