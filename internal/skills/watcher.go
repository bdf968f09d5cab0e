package skills

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	. "github.com/roelfdiedericks/pagesmith/internal/logging"
)

// defaultDebounce coalesces editor save bursts into one reload.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads skills when their directories change on disk.
type Watcher struct {
	fs       *fsnotify.Watcher
	dirs     []string
	debounce time.Duration
	onChange func()
	stopCh   chan struct{}

	mu      sync.Mutex
	pending *time.Timer
}

// NewWatcher creates a watcher that calls onChange after changes settle.
func NewWatcher(debounce time.Duration, onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		fs:       fs,
		debounce: debounce,
		onChange: onChange,
		stopCh:   make(chan struct{}),
	}, nil
}

// WatchDirs registers skill directories and their existing skill folders.
func (w *Watcher) WatchDirs(dirs []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			L_warn("skills: cannot watch directory", "path", dir, "error", err)
			continue
		}
		subdirs, _ := filepath.Glob(filepath.Join(dir, "*"))
		for _, sub := range subdirs {
			w.fs.Add(sub)
		}
		w.dirs = append(w.dirs, dir)
		L_debug("skills: watching", "path", dir)
	}
}

// Start runs the event loop on its own goroutine.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			L_warn("skills: watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, "SKILL.md") {
		// A freshly created skill folder needs its own watch before the
		// SKILL.md inside it becomes visible.
		if event.Op&fsnotify.Create != 0 && w.insideWatchedDir(event.Name) {
			w.fs.Add(event.Name)
		}
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	L_debug("skills: file changed", "path", event.Name, "op", event.Op.String())
	w.schedule()
}

func (w *Watcher) insideWatchedDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, dir := range w.dirs {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// schedule arms the debounce timer, resetting any pending one.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()

		L_info("skills: changed on disk, reloading")
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}
