package platform

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hubastard/vkdemo/engine/core"
)

// shaderSettle swallows the burst of events a single editor save produces.
const shaderSettle = 100 * time.Millisecond

// ShaderWatcher reports writes to shader sources in a directory as
// core.EventShaderChanged.
type ShaderWatcher struct {
	w    *fsnotify.Watcher
	emit func(core.Event)
	log  *slog.Logger
	ext  string
	done chan struct{}
	wg   sync.WaitGroup
}

// WatchShaders starts watching dir for files with extension ext (".wgsl").
func WatchShaders(dir, ext string, emit func(core.Event), log *slog.Logger) (*ShaderWatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch shaders: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch shaders %q: %w", dir, err)
	}
	sw := &ShaderWatcher{w: w, emit: emit, log: log, ext: ext, done: make(chan struct{})}
	sw.wg.Add(1)
	go sw.run()
	log.Info("watching shaders", "dir", dir)
	return sw, nil
}

func (sw *ShaderWatcher) run() {
	defer sw.wg.Done()
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	for {
		select {
		case <-sw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-sw.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Ext(ev.Name) != sw.ext {
				continue
			}
			pending = ev.Name
			if timer == nil {
				timer = time.NewTimer(shaderSettle)
			} else {
				timer.Reset(shaderSettle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			sw.log.Debug("shader changed", "path", pending)
			sw.emit(core.EventShaderChanged{Path: pending})
		case err, ok := <-sw.w.Errors:
			if !ok {
				return
			}
			sw.log.Warn("shader watcher", "err", err)
		}
	}
}

// Close stops the watcher and waits for its goroutine.
func (sw *ShaderWatcher) Close() error {
	close(sw.done)
	err := sw.w.Close()
	sw.wg.Wait()
	return err
}
