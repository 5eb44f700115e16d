// Package classes holds the fixed tree health label set, in the index order the
// detector was trained with, and the display color of every label.
package classes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image/color"
	"strings"
)

// Label is a tree health class. Its integer value is the detector class index.
type Label int

const (
	Dead Label = iota
	Grass
	Healthy
	Small
	Yellow

	// Count is the size of the label set.
	Count = int(Yellow) + 1
)

var names = [Count]string{
	Dead:    "Dead",
	Grass:   "Grass",
	Healthy: "Healthy",
	Small:   "Small",
	Yellow:  "Yellow",
}

var colors = [Count]color.RGBA{
	Dead:    {R: 255, G: 0, B: 0, A: 255},   // red
	Grass:   {R: 0, G: 255, B: 0, A: 255},   // lime
	Healthy: {R: 0, G: 128, B: 0, A: 255},   // green
	Small:   {R: 0, G: 255, B: 255, A: 255}, // cyan
	Yellow:  {R: 255, G: 255, B: 0, A: 255}, // yellow
}

func init() {
	for i := 0; i < Count; i++ {
		if names[i] == "" {
			panic(fmt.Sprintf("classes: label %d has no name", i))
		}
		if colors[i].A == 0 {
			panic(fmt.Sprintf("classes: label %s has no color", names[i]))
		}
	}
}

// All returns every label in index order.
func All() []Label {
	out := make([]Label, Count)
	for i := range out {
		out[i] = Label(i)
	}
	return out
}

// Names returns the label names in index order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Valid reports whether l belongs to the label set.
func (l Label) Valid() bool {
	return l >= 0 && int(l) < Count
}

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return names[l]
}

// Color returns the display color of l.
func (l Label) Color() (color.RGBA, error) {
	if !l.Valid() {
		return color.RGBA{}, &ConfigError{Index: int(l), Reason: "no color assigned"}
	}
	return colors[l], nil
}

// Hex returns the color of l as #rrggbb, or "" for a label outside the set.
func (l Label) Hex() string {
	c, err := l.Color()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// FromIndex resolves a detector class index.
func FromIndex(i int) (Label, error) {
	l := Label(i)
	if !l.Valid() {
		return 0, &ConfigError{Index: i, Reason: "class index outside the label set"}
	}
	return l, nil
}

// Parse resolves a label by its name.
func Parse(name string) (Label, error) {
	for i, n := range names {
		if n == name {
			return Label(i), nil
		}
	}
	return 0, &ConfigError{Index: -1, Name: name, Reason: "unknown class name"}
}

// Tag identifies the ordered label set. A model exported with a different class
// order produces a different tag.
func Tag() string {
	return tagOf(names[:])
}

func tagOf(ns []string) string {
	sum := sha256.Sum256([]byte(strings.Join(ns, "\n")))
	return hex.EncodeToString(sum[:])[:12]
}

// CheckTag compares a configured tag with the compiled label set. An empty tag is accepted.
func CheckTag(tag string) error {
	if tag == "" || tag == Tag() {
		return nil
	}
	return &ConfigError{Index: -1, Name: tag, Reason: fmt.Sprintf("label set tag mismatch, compiled %s", Tag())}
}
