package profiler

import (
	"errors"
	"runtime"
)

var (
	// ErrDisabled is returned by Dump and Open in builds without the
	// "profile" tag.
	ErrDisabled = errors.New("profiler: built without the profile tag")
	// ErrNoEvents means nothing has been recorded yet.
	ErrNoEvents = errors.New("profiler: no events to dump")
)

// Runtime is a point-in-time view of the Go runtime for the stats overlay.
type Runtime struct {
	HeapAlloc  uint64
	Mallocs    uint64
	NumGC      uint32
	Goroutines int
	CPUs       int
}

// ReadRuntime samples the runtime. It stops the world briefly, so call it
// at most a few times a second.
func ReadRuntime() Runtime {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Runtime{
		HeapAlloc:  m.HeapAlloc,
		Mallocs:    m.Mallocs,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		CPUs:       runtime.NumCPU(),
	}
}
