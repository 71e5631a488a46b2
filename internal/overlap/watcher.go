// Package overlap watches the install tree during a run and reports files
// that more than one task wrote to.
//
// Tasks install into a shared prefix, so two tasks shipping the same file
// silently last-write-wins. The watcher attributes every write under the
// install root to the tasks running at that moment and surfaces files with
// more than one writer as warnings. Attribution is by time, not by path:
// when several tasks run concurrently a write counts against all of them,
// so a reported overlap means "one of these", not a proven double write.
package overlap

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mo2build/mob/internal/logging"
)

// FileOverlap is a file in the install tree written while more than one
// task was running.
type FileOverlap struct {
	// RelativePath is the file's path below the install root.
	RelativePath string
	// Tasks are the candidate writers, sorted by name.
	Tasks []string
	// LastModified is when the file was last seen changing.
	LastModified time.Time
}

// Watcher observes one install tree. Start begins watching, task
// executions are bracketed with TaskStarted and TaskFinished, and
// Overlaps reports the result at any point.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *logging.Logger
	root    string

	// Tasks currently executing.
	running map[string]struct{}
	// Relative path -> task name -> last write attributed to it.
	touches map[string]map[string]time.Time

	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher for the install tree rooted at root. A nil logger
// discards output. Call Start to begin watching.
func New(log *logging.Logger, root string) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		log:     log,
		root:    filepath.Clean(root),
		running: make(map[string]struct{}),
		touches: make(map[string]map[string]time.Time),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the install root. The tree usually does not exist
// before the first build, so a missing root is created rather than
// reported.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create install root: %w", err)
	}
	if err := w.watchTree(w.root); err != nil {
		return fmt.Errorf("failed to watch install root: %w", err)
	}

	go w.watchLoop()
	return nil
}

// Stop stops watching. Safe to call more than once; events still in
// flight when Stop is called are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		<-w.done
	})
}

// TaskStarted marks a task as running so writes get attributed to it.
func (w *Watcher) TaskStarted(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running[name] = struct{}{}
}

// TaskFinished removes a task from the running set.
func (w *Watcher) TaskFinished(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.running, name)
}

// Overlaps returns the files attributed to more than one task, sorted by
// path.
func (w *Watcher) Overlaps() []FileOverlap {
	w.mu.RLock()
	defer w.mu.RUnlock()

	overlaps := make([]FileOverlap, 0)
	for rel, byTask := range w.touches {
		if len(byTask) < 2 {
			continue
		}

		names := make([]string, 0, len(byTask))
		var last time.Time
		for name, at := range byTask {
			names = append(names, name)
			if at.After(last) {
				last = at
			}
		}
		sort.Strings(names)
		overlaps = append(overlaps, FileOverlap{
			RelativePath: rel,
			Tasks:        names,
			LastModified: last,
		})
	}

	sort.Slice(overlaps, func(i, j int) bool {
		return overlaps[i].RelativePath < overlaps[j].RelativePath
	})
	return overlaps
}

// TouchedBy returns the files attributed to one task, sorted by path.
func (w *Watcher) TouchedBy(task string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var files []string
	for rel, byTask := range w.touches {
		if _, ok := byTask[task]; ok {
			files = append(files, rel)
		}
	}
	sort.Strings(files)
	return files
}

// watchTree watches dir and everything below it. fsnotify watches are not
// recursive, so every directory needs its own.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *Watcher) watchLoop() {
	defer close(w.done)

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			w.addTree(event.Name)
		}
		return
	}
	w.attribute(event.Name)
}

// addTree starts watching a directory created during the run. Files that
// landed in it before its watch did have produced no events, and since the
// directory itself is new they count as writes too.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = w.watcher.Add(path)
			return nil
		}
		if d.Type().IsRegular() {
			w.attribute(path)
		}
		return nil
	})
}

// attribute records one write against the tasks running right now. The
// running set is read at delivery time, which is why events are handled as
// they arrive instead of being debounced; the touch map absorbs the bursts
// copies produce.
func (w *Watcher) attribute(path string) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.running) == 0 {
		return
	}

	byTask := w.touches[rel]
	if byTask == nil {
		byTask = make(map[string]time.Time)
		w.touches[rel] = byTask
	}

	now := time.Now()
	for name := range w.running {
		if _, seen := byTask[name]; !seen && len(byTask) > 0 {
			names := make([]string, 0, len(byTask)+1)
			for n := range byTask {
				names = append(names, n)
			}
			names = append(names, name)
			sort.Strings(names)
			w.log.Warn("install tree overlap", "path", rel, "tasks", names)
		}
		byTask[name] = now
	}
}
