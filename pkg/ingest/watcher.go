package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/docrag/pkg/logger"
)

// DefaultSettleDelay is how long a file must stay quiet before it is queued.
const DefaultSettleDelay = 2 * time.Second

// Enqueuer accepts ingestion jobs. Satisfied by *Pool.
type Enqueuer interface {
	Enqueue(job Job) bool
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Dir        string
	Collection string
	DocType    string

	// Extensions lists the lower-case file extensions to ingest.
	// Defaults to ".pdf".
	Extensions []string

	SettleDelay time.Duration
	Queue       Enqueuer
	Logger      *slog.Logger
}

// Watcher queues files created or written in a directory once they settle.
type Watcher struct {
	config  WatcherConfig
	exts    map[string]bool
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool

	// inflight tracks timer callbacks that already fired and are enqueueing.
	inflight sync.WaitGroup
}

// NewWatcher starts watching c.Dir. Call Run to process events.
func NewWatcher(c WatcherConfig) (*Watcher, error) {
	if c.Queue == nil {
		return nil, fmt.Errorf("watcher requires a queue")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".pdf"}
	}
	l := c.Logger
	if l == nil {
		l = logger.Nop()
	}

	exts := make(map[string]bool, len(c.Extensions))
	for _, e := range c.Extensions {
		exts[strings.ToLower(e)] = true
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(c.Dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{
		config:  c,
		exts:    exts,
		fsw:     fsw,
		logger:  l,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run processes events until ctx is done, then stops every pending timer,
// waits for fired ones to finish enqueueing and closes the underlying
// watcher. Nothing is enqueued once Run has returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()

	w.logger.Info("watching directory", "dir", w.config.Dir, "collection", w.config.Collection)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", logger.Err(err))
		}
	}
}

func (w *Watcher) schedule(path string) {
	if !w.exts[strings.ToLower(filepath.Ext(path))] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.config.SettleDelay)
		return
	}

	w.pending[path] = time.AfterFunc(w.config.SettleDelay, func() {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.inflight.Add(1)
		w.mu.Unlock()
		defer w.inflight.Done()

		job := Job{
			Collection: w.config.Collection,
			Path:       path,
			DocType:    w.config.DocType,
		}
		if !w.config.Queue.Enqueue(job) {
			w.logger.Warn("dropped watched file", "path", path)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.inflight.Wait()

	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("closing watcher", logger.Err(err))
	}
}
