package annotator

import (
	"TreeDetServer/classes"
)

// ClassCount tallies detections per label for one image. It always holds every label.
type ClassCount map[classes.Label]int

// Entry is one row of a ClassCount in label order.
type Entry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// NewClassCount returns a zero filled tally.
func NewClassCount() ClassCount {
	c := make(ClassCount, classes.Count)
	for _, l := range classes.All() {
		c[l] = 0
	}
	return c
}

func (c ClassCount) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Entries lists the tally in label index order.
func (c ClassCount) Entries() []Entry {
	out := make([]Entry, 0, classes.Count)
	for _, l := range classes.All() {
		out = append(out, Entry{Label: l.String(), Count: c[l]})
	}
	return out
}

// ByName keys the tally by label name.
func (c ClassCount) ByName() map[string]int {
	out := make(map[string]int, len(c))
	for l, n := range c {
		out[l.String()] = n
	}
	return out
}
