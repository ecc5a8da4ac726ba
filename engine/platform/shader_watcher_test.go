package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubastard/vkdemo/engine/core"
)

func TestShaderWatcherCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mesh.wgsl")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0o644))

	q := core.NewEventQueue()
	sw, err := WatchShaders(dir, ".wgsl", q.Push, nil)
	require.NoError(t, err)
	defer sw.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return q.Len() > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(3 * shaderSettle)
	evs := q.Drain()
	require.Len(t, evs, 1)
	assert.Equal(t, core.EventShaderChanged{Path: path}, evs[0])
}

func TestShaderWatcherMissingDir(t *testing.T) {
	_, err := WatchShaders(filepath.Join(t.TempDir(), "nope"), ".wgsl", func(core.Event) {}, nil)
	assert.Error(t, err)
}
