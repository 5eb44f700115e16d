// Package annotator draws labelled detection boxes on a copy of an image and
// tallies the detections per tree health class.
package annotator

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"TreeDetServer/classes"
	iface "TreeDetServer/interface"
)

const defaultLineThickness = 2

// Annotation is a detection resolved to its label.
type Annotation struct {
	Label classes.Label
	Box   iface.Box
	Conf  float32
}

// Result holds the annotated copy of the input and the tally. The caller owns Image.
type Result struct {
	Image       gocv.Mat
	Counts      ClassCount
	Total       int
	Annotations []Annotation
}

// Close releases the annotated image.
func (r *Result) Close() error {
	return r.Image.Close()
}

type Annotator struct {
	font          Font
	lineThickness int
}

type Option func(*Annotator)

func WithFont(f Font) Option {
	return func(a *Annotator) { a.font = f }
}

func WithLineThickness(px int) Option {
	return func(a *Annotator) { a.lineThickness = px }
}

func New(opts ...Option) *Annotator {
	a := &Annotator{
		font:          DefaultFont(),
		lineThickness: defaultLineThickness,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.lineThickness <= 0 {
		a.lineThickness = defaultLineThickness
	}
	return a
}

// Annotate draws dets onto a copy of img in the order given, boxes first and then
// their labels, so later boxes cover earlier ones and every label sits above all
// boxes. img is never modified. A detection whose class is outside the label set
// fails the whole call with a *classes.ConfigError before anything is drawn.
func (a *Annotator) Annotate(img gocv.Mat, dets []iface.Detection) (*Result, error) {
	if img.Empty() {
		return nil, errors.New("annotator: empty image")
	}
	if img.Channels() != 3 {
		return nil, errors.Errorf("annotator: expected a 3 channel image, got %d", img.Channels())
	}

	annotations := make([]Annotation, len(dets))
	boxColors := make([]color.RGBA, len(dets))
	counts := NewClassCount()
	for i, d := range dets {
		label, err := classes.FromIndex(d.Class)
		if err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
		c, err := label.Color()
		if err != nil {
			return nil, errors.Wrapf(err, "detection %d", i)
		}
		annotations[i] = Annotation{Label: label, Box: d.Box, Conf: d.Conf}
		boxColors[i] = c
		counts[label]++
	}

	out := img.Clone()
	for i, an := range annotations {
		gocv.Rectangle(&out, an.Box.Rect(), boxColors[i], a.lineThickness)
	}
	for _, an := range annotations {
		a.drawLabel(&out, an.Box.Rect(), an.Label.String())
	}

	return &Result{
		Image:       out,
		Counts:      counts,
		Total:       counts.Total(),
		Annotations: annotations,
	}, nil
}

// drawLabel writes text with its baseline Offset pixels above the top-left corner of box.
func (a *Annotator) drawLabel(img *gocv.Mat, box image.Rectangle, text string) {
	f := a.font
	size := gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
	baseline := box.Min.Y - f.Offset

	bg := image.Rect(
		box.Min.X,
		baseline-size.Y-f.Pad,
		box.Min.X+size.X+2*f.Pad,
		baseline+f.Pad,
	)
	blendRect(img, bg, f.Background, f.Alpha)

	gocv.PutTextWithParams(img, text, image.Pt(box.Min.X+f.Pad, baseline),
		f.Face, f.Scale, f.Color, f.Thickness, f.LineType, false)
}

// blendRect mixes c into the part of r that lies inside img with opacity alpha.
func blendRect(img *gocv.Mat, r image.Rectangle, c color.RGBA, alpha float64) {
	r = r.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if r.Empty() || alpha <= 0 {
		return
	}
	roi := img.Region(r)
	defer roi.Close()

	fill := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), r.Dy(), r.Dx(), img.Type())
	defer fill.Close()

	gocv.AddWeighted(roi, 1-alpha, fill, alpha, 0, &roi)
}
