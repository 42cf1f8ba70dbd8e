package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// WatcherOptions configures the watch loop
type WatcherOptions struct {
	Logger      *slog.Logger
	Organizer   *Organizer
	Source      ports.EventSource
	Dirs        []string
	SettleDelay time.Duration
	Recursive   bool

	// Notify, when set, receives every outcome on the loop goroutine
	Notify func(domain.Outcome)
}

// Watcher turns filesystem events into organizer runs.
// Events are collected into a settle queue; a single loop drains due
// entries one file at a time.
type Watcher struct {
	opts   WatcherOptions
	logger *slog.Logger
	queue  *settleQueue
}

// NewWatcher checks the options
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if opts.Organizer == nil || opts.Source == nil {
		return nil, fmt.Errorf("watcher requires an organizer and an event source")
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Watcher{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger),
		queue:  newSettleQueue(),
	}, nil
}

// Run watches until ctx is cancelled or the event source closes
func (w *Watcher) Run(ctx context.Context) error {
	watched := 0
	for _, dir := range w.opts.Dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			w.logger.Warn("source directory unavailable, not watching", logging.Path(dir), logging.Error(err))
			continue
		}
		if err := w.addTree(dir); err != nil {
			w.logger.Warn("failed to watch directory", logging.Path(dir), logging.Error(err))
			continue
		}
		watched++
	}
	if watched == 0 {
		return fmt.Errorf("none of the %d source directories can be watched", len(w.opts.Dirs))
	}

	w.logger.Info("watching",
		logging.Int("directories", watched),
		logging.Duration("settle_delay", w.opts.SettleDelay),
	)

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	rearm := func() {
		if timer != nil {
			timer.Stop()
		}
		next, ok := w.queue.next()
		if !ok {
			timer, timerC = nil, nil
			return
		}
		timer = time.NewTimer(max(time.Until(next), 0))
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	events := w.opts.Source.Events()
	errs := w.opts.Source.Errors()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped", logging.Int("pending", w.queue.len()))
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.observe(ev, time.Now())
			rearm()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("watch error", logging.Error(err))

		case <-timerC:
			w.drain(ctx, time.Now())
			rearm()
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	if err := w.opts.Source.Add(dir); err != nil {
		return err
	}
	if !w.opts.Recursive {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || domain.IsHidden(e.Name()) {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if w.relevant(sub) {
			if err := w.addTree(sub); err != nil {
				w.logger.Warn("failed to watch directory", logging.Path(sub), logging.Error(err))
			}
		}
	}
	return nil
}

// relevant filters out ignored names and anything inside the archive
func (w *Watcher) relevant(path string) bool {
	if within(w.opts.Organizer.opts.Resolver.Root(), path) {
		return false
	}
	return !w.opts.Organizer.Ignored(path)
}

func (w *Watcher) observe(ev ports.FileEvent, now time.Time) {
	if !w.relevant(ev.Path) {
		return
	}

	switch ev.Op {
	case ports.OpRemove:
		w.queue.remove(ev.Path)
		return
	case ports.OpCreate:
		if info, err := os.Stat(ev.Path); err == nil && info.IsDir() {
			if w.opts.Recursive {
				if err := w.addTree(ev.Path); err != nil {
					w.logger.Warn("failed to watch new directory", logging.Path(ev.Path), logging.Error(err))
				}
			}
			return
		}
	}

	w.queue.push(ev.Path, now.Add(w.opts.SettleDelay))
	w.logger.Debug("scheduled", logging.Path(ev.Path))
}

func (w *Watcher) drain(ctx context.Context, now time.Time) {
	for _, path := range w.queue.popDue(now) {
		if ctx.Err() != nil {
			return
		}
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			// renamed away or deleted before it settled
			continue
		}

		out := w.opts.Organizer.Organize(ctx, path)
		if out.Status == domain.StatusFailed {
			w.logger.Error("failed to organize", logging.Path(path), logging.Error(out.Err))
		}
		if w.opts.Notify != nil {
			w.opts.Notify(out)
		}
	}
}

// settleQueue holds at most one pending entry per path
type settleQueue struct {
	due map[string]time.Time
}

func newSettleQueue() *settleQueue {
	return &settleQueue{due: make(map[string]time.Time)}
}

// push schedules path at when, replacing any earlier schedule
func (q *settleQueue) push(path string, when time.Time) {
	q.due[path] = when
}

func (q *settleQueue) remove(path string) {
	delete(q.due, path)
}

func (q *settleQueue) len() int {
	return len(q.due)
}

// next returns the earliest due time
func (q *settleQueue) next() (time.Time, bool) {
	var first time.Time
	found := false
	for _, when := range q.due {
		if !found || when.Before(first) {
			first, found = when, true
		}
	}
	return first, found
}

// popDue removes and returns every entry due at now, earliest first
func (q *settleQueue) popDue(now time.Time) []string {
	var paths []string
	for path, when := range q.due {
		if !when.After(now) {
			paths = append(paths, path)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := q.due[paths[i]], q.due[paths[j]]
		if a.Equal(b) {
			return paths[i] < paths[j]
		}
		return a.Before(b)
	})
	for _, p := range paths {
		delete(q.due, p)
	}
	return paths
}
