package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadRuntime(t *testing.T) {
	r := ReadRuntime()
	assert.NotZero(t, r.HeapAlloc)
	assert.GreaterOrEqual(t, r.Goroutines, 1)
	assert.GreaterOrEqual(t, r.CPUs, 1)
}

func TestStartIsSafeBeforeInit(t *testing.T) {
	end := Start("scope")
	assert.NotPanics(t, end)
}
