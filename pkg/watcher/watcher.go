// Package watcher re-runs a callback whenever a flow file changes on disk.
//
// Flow documents are saved atomically (written to a temp file, then renamed
// over the target), and most editors save the same way, so every save
// replaces the watched path's inode. fsnotify therefore watches the parent
// directory rather than the file itself, and each burst of raw events is
// debounced into a single re-stat of the target. Remote filesystems (NFS,
// SMB, SSHFS) deliver inotify events unreliably, so those fall back to a
// stat-polling loop with the same debounced notification path.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval used in polling mode.
const DefaultPollInterval = 2 * time.Second

// ErrFileRemoved is reported once, via OnError, when the watched flow file
// disappears without being replaced.
var ErrFileRemoved = errors.New("watched flow file was removed")

// Options configures a watch. Zero durations fall back to the defaults.
type Options struct {
	// Debounce is how long raw events must settle before OnChange fires.
	Debounce time.Duration
	// PollInterval is the stat interval when polling mode is active.
	PollInterval time.Duration
	// ForcePoll skips fsnotify entirely. The QF_FORCE_POLLING and
	// QF_FORCE_POLL environment variables force the same.
	ForcePoll bool
	// OnChange runs once the flow file has settled into a new state.
	OnChange func()
	// OnError receives watch failures and file-removal notices.
	OnError func(error)
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounceDuration
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.OnChange == nil {
		o.OnChange = func() {}
	}
	if o.OnError == nil {
		o.OnError = func(error) {}
	}
	return o
}

// Watcher follows one flow file. Construct with Watch; it is live until
// Stop is called.
type Watcher struct {
	path    string
	opts    Options
	fsType  FilesystemType
	polling bool

	debouncer *Debouncer
	fsw       *fsnotify.Watcher

	mu        sync.Mutex
	lastMtime time.Time
	lastSize  int64
	hadFile   bool

	done     chan struct{}
	stopOnce sync.Once
}

// Watch starts following the flow file at path. The file does not have to
// exist yet; it is picked up on its first save.
func Watch(path string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	w := &Watcher{
		path:      abs,
		opts:      opts,
		debouncer: NewDebouncer(opts.Debounce),
		done:      make(chan struct{}),
	}
	if info, err := os.Stat(abs); err == nil {
		w.lastMtime, w.lastSize, w.hadFile = info.ModTime(), info.Size(), true
	}

	w.fsType = detectFilesystemTypeFunc(abs)
	w.polling = opts.ForcePoll ||
		envBool("QF_FORCE_POLLING") || envBool("QF_FORCE_POLL") ||
		isRemoteFilesystem(w.fsType)

	if !w.polling {
		// Watch the directory, not the file: an atomic save replaces the
		// file's inode and a file-level watch would go dead on the first one.
		fsw, fswErr := fsnotify.NewWatcher()
		if fswErr == nil {
			if addErr := fsw.Add(filepath.Dir(abs)); addErr != nil {
				fsw.Close()
				w.polling = true
			} else {
				w.fsw = fsw
				go w.runFsnotify()
			}
		} else {
			w.polling = true
		}
	}
	if w.polling {
		go w.runPolling()
	}
	return w, nil
}

// Stop ends the watch and drops any pending debounced callback. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if w.fsw != nil {
			w.fsw.Close()
		}
		w.debouncer.Cancel()
	})
}

// IsPolling reports whether the watcher runs in stat-polling mode.
func (w *Watcher) IsPolling() bool { return w.polling }

// PollInterval returns the stat interval used in polling mode.
func (w *Watcher) PollInterval() time.Duration { return w.opts.PollInterval }

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// FilesystemType returns the classification that drove the mode choice.
func (w *Watcher) FilesystemType() FilesystemType { return w.fsType }

func (w *Watcher) runFsnotify() {
	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			// Writes, creates, renames, and removes all funnel into the
			// same debounced re-stat: one editor save can surface as any
			// mix of them, and a temp-and-rename save ends in a create.
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.debouncer.Trigger(w.settle)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.opts.OnError(err)
		}
	}
}

func (w *Watcher) runPolling() {
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	// The loop keeps its own last-seen stat and only triggers on
	// transitions. Comparing against the settled state instead would
	// re-trigger every tick while a debounce is pending and starve the
	// callback.
	w.mu.Lock()
	prevMtime, prevSize, prevExists := w.lastMtime, w.lastSize, w.hadFile
	w.mu.Unlock()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(w.path)
			switch {
			case err == nil:
				if !prevExists || !info.ModTime().Equal(prevMtime) || info.Size() != prevSize {
					w.debouncer.Trigger(w.settle)
				}
				prevMtime, prevSize, prevExists = info.ModTime(), info.Size(), true
			case os.IsNotExist(err):
				if prevExists {
					w.debouncer.Trigger(w.settle)
				}
				prevExists = false
			default:
				w.opts.OnError(err)
			}
		}
	}
}

// settle re-stats the file after events quiet down, firing at most one
// callback per burst. A missing file is reported once as ErrFileRemoved and
// re-arms, so a later re-save is seen as a change.
func (w *Watcher) settle() {
	select {
	case <-w.done:
		return
	default:
	}

	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			w.mu.Lock()
			gone := w.hadFile
			w.hadFile = false
			w.mu.Unlock()
			if gone {
				w.opts.OnError(ErrFileRemoved)
			}
		} else {
			w.opts.OnError(err)
		}
		return
	}

	w.mu.Lock()
	changed := !w.hadFile || !info.ModTime().Equal(w.lastMtime) || info.Size() != w.lastSize
	w.lastMtime, w.lastSize, w.hadFile = info.ModTime(), info.Size(), true
	w.mu.Unlock()

	if changed {
		w.opts.OnChange()
	}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
