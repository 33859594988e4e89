// Package watch reports debounced filesystem changes below a DecSync directory.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize        = 64
	defaultDebounceTimeout = 100 * time.Millisecond
	watchedEvents          = notify.Create | notify.Write | notify.Rename
)

var ErrAlreadyStarted = errors.New("watcher already started")

// FilterCallback returns true for paths whose events should be dropped.
type FilterCallback func(path string) bool

// Watcher recursively watches a directory. Bursts of events on the same path
// are collapsed into one event delivered after the debounce timeout.
type Watcher struct {
	watchDir        string
	events          chan notify.EventInfo
	rawEvents       chan notify.EventInfo
	done            chan struct{}
	wg              sync.WaitGroup
	started         bool
	pendingEvents   map[string]notify.EventInfo
	eventTimers     map[string]*time.Timer
	debounceMu      sync.Mutex
	debounceTimeout time.Duration
	filter          FilterCallback
	filterMu        sync.RWMutex
	logger          *slog.Logger
}

func New(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pendingEvents:   make(map[string]notify.EventInfo),
		eventTimers:     make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
		logger:          slog.Default(),
	}
}

func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

func (w *Watcher) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// FilterPaths drops raw events before debouncing when callback returns true.
func (w *Watcher) FilterPaths(callback FilterCallback) {
	w.filterMu.Lock()
	defer w.filterMu.Unlock()
	w.filter = callback
}

func (w *Watcher) Start(ctx context.Context) error {
	if w.started {
		return ErrAlreadyStarted
	}

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)

	if err := notify.Watch(w.watchDir+"/...", w.rawEvents, watchedEvents); err != nil {
		return err
	}
	w.started = true
	w.logger.Info("watcher start", "dir", w.watchDir)

	w.wg.Add(1)
	go w.filterEvents(ctx)

	return nil
}

// Stop ends the watch and waits for the event loop. Events still pending
// debounce are flushed before Events is closed.
func (w *Watcher) Stop() {
	if !w.started {
		return
	}
	close(w.done)
	notify.Stop(w.rawEvents)
	w.wg.Wait()
	w.started = false
	w.logger.Info("watcher stopped", "dir", w.watchDir)
}

func (w *Watcher) Events() <-chan notify.EventInfo {
	return w.events
}

func (w *Watcher) filtered(path string) bool {
	w.filterMu.RLock()
	defer w.filterMu.RUnlock()
	return w.filter != nil && w.filter(path)
}

func (w *Watcher) filterEvents(ctx context.Context) {
	defer func() {
		w.debounceMu.Lock()
		for path, timer := range w.eventTimers {
			timer.Stop()
			if event, ok := w.pendingEvents[path]; ok {
				w.send(event)
			}
			delete(w.eventTimers, path)
			delete(w.pendingEvents, path)
		}
		// late timers find nothing pending and return
		close(w.events)
		w.debounceMu.Unlock()
		w.wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}
			if w.filtered(event.Path()) {
				continue
			}
			w.debounce(event)
		}
	}
}

func (w *Watcher) debounce(event notify.EventInfo) {
	path := event.Path()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, ok := w.eventTimers[path]; ok {
		timer.Stop()
	}
	w.pendingEvents[path] = event
	w.eventTimers[path] = time.AfterFunc(w.debounceTimeout, func() {
		w.flush(path)
	})
}

func (w *Watcher) flush(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	event, ok := w.pendingEvents[path]
	if !ok {
		return
	}
	delete(w.pendingEvents, path)
	delete(w.eventTimers, path)
	w.send(event)
}

// send must be called with debounceMu held.
func (w *Watcher) send(event notify.EventInfo) {
	select {
	case w.events <- event:
		w.logger.Debug("watcher", "event", event.Event(), "path", event.Path())
	default:
		w.logger.Warn("watcher dropped event", "reason", "channel full", "path", event.Path())
	}
}
