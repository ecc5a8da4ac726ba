//go:build profile

package profiler

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDumpName is the file Open writes into the temp directory.
const DefaultDumpName = "vkdemo.profile.speedscope.json"

// Enabled reports whether scopes are being recorded.
func Enabled() bool { return ring.ready.Load() }

// Init must be called once before any scope is recorded. capacity is the
// number of open/close events kept; older events are overwritten.
func Init(capacity int) {
	if capacity <= 0 {
		capacity = 1 << 20
	}
	ring.init(capacity)
}

// Start opens a scope and returns the func that closes it.
//
//	defer profiler.Start("frame.acquire")()
func Start(name string) func() {
	if !ring.ready.Load() {
		return func() {}
	}
	id := intern(name)
	begin := time.Now().UnixNano()
	ring.push(event{at: begin, frame: id, open: true})
	return func() {
		end := time.Now().UnixNano()
		if end < begin {
			end = begin
		}
		ring.push(event{at: end, frame: id})
	}
}

// Dump writes everything currently in the ring to path as a speedscope
// evented profile.
func Dump(path string) error {
	evs := ring.snapshot()
	if len(evs) == 0 {
		return ErrNoEvents
	}
	return writeSpeedscope(evs, snapshotFrames(), path)
}

// Open dumps to the temp directory and launches the speedscope viewer on
// the result. A missing viewer is not an error; the path is still returned.
func Open() (string, error) {
	path := filepath.Join(os.TempDir(), DefaultDumpName)
	if err := Dump(path); err != nil {
		return "", err
	}
	cmd := exec.Command("speedscope", path)
	hideConsole(cmd)
	if err := cmd.Start(); err != nil {
		return path, fmt.Errorf("launch speedscope: %w", err)
	}
	go cmd.Wait()
	return path, nil
}

type event struct {
	at    int64
	frame int
	open  bool
}

type eventRing struct {
	ready atomic.Bool
	size  uint64
	write atomic.Uint64
	evs   []event
}

func (r *eventRing) init(capacity int) {
	r.size = uint64(capacity)
	r.evs = make([]event, r.size)
	r.write.Store(0)
	r.ready.Store(true)
}

func (r *eventRing) push(e event) {
	i := r.write.Add(1) - 1
	r.evs[i%r.size] = e
}

// snapshot returns events in write order.
func (r *eventRing) snapshot() []event {
	if !r.ready.Load() {
		return nil
	}
	n := r.write.Load()
	var first uint64
	if n > r.size {
		first = n - r.size
	}
	out := make([]event, 0, n-first)
	for k := first; k < n; k++ {
		out = append(out, r.evs[k%r.size])
	}
	return out
}

var ring eventRing

var (
	framesMu sync.Mutex
	frames   []string
	frameIDs = map[string]int{}
)

func intern(name string) int {
	framesMu.Lock()
	defer framesMu.Unlock()
	if id, ok := frameIDs[name]; ok {
		return id
	}
	id := len(frames)
	frameIDs[name] = id
	frames = append(frames, name)
	return id
}

func snapshotFrames() []string {
	framesMu.Lock()
	defer framesMu.Unlock()
	return append([]string(nil), frames...)
}
