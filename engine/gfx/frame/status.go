package frame

import "fmt"

// Status is the recoverable part of an acquire or present result. A fatal
// result is reported through a non-nil error instead.
type Status int

const (
	StatusOK Status = iota
	// StatusSuboptimal: the operation succeeded but the surface no longer
	// matches the swapchain exactly.
	StatusSuboptimal
	// StatusStale: the surface is out of date and nothing was acquired or
	// presented.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusStale:
		return "stale"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// NeedsRebuild reports whether the surface must be rebuilt.
func (s Status) NeedsRebuild() bool { return s != StatusOK }
