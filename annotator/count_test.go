package annotator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TreeDetServer/classes"
)

func TestClassCount(t *testing.T) {
	c := NewClassCount()
	assert.Len(t, c, classes.Count)
	assert.Zero(t, c.Total())

	c[classes.Small] += 3
	c[classes.Dead]++
	assert.Equal(t, 4, c.Total())
	assert.Equal(t, "Dead", c.Entries()[0].Label)
	assert.Equal(t, 3, c.ByName()["Small"])
}
