package function

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	f := New("resize", "faas-function:latest", 3)
	assert.Equal(t, "resize", f.Name)
	assert.Equal(t, "faas-function:latest", f.Image)
	assert.Equal(t, 3, f.MaxConcurrency)
}

func TestString(t *testing.T) {
	f := New("resize", "faas-function:latest", 3)
	assert.Equal(t, "resize", f.String())
}
