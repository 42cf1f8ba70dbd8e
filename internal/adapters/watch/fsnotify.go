package watch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/logging"
)

// Source adapts an fsnotify watcher to the event source port
type Source struct {
	watcher *fsnotify.Watcher
	events  chan ports.FileEvent
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
}

var _ ports.EventSource = (*Source)(nil)

// New starts an event source with nothing watched yet
func New(logger *slog.Logger) (*Source, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	s := &Source{
		watcher: w,
		events:  make(chan ports.FileEvent, 64),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
		logger:  logging.OrDiscard(logger),
	}
	s.wg.Add(1)
	go s.forward()
	return s, nil
}

// Add starts watching dir (not recursive)
func (s *Source) Add(dir string) error {
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	s.logger.Debug("watching directory", logging.Path(dir))
	return nil
}

func (s *Source) Events() <-chan ports.FileEvent { return s.events }

func (s *Source) Errors() <-chan error { return s.errors }

// Close stops the watcher and closes both channels
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.watcher.Close()
		s.wg.Wait()
		close(s.events)
		close(s.errors)
	})
	return err
}

func (s *Source) forward() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			op, ok := translate(ev.Op)
			if !ok {
				continue
			}
			select {
			case s.events <- ports.FileEvent{Path: ev.Name, Op: op}:
			case <-s.done:
				return
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			case <-s.done:
				return
			}
		}
	}
}

// translate maps fsnotify ops; chmod-only events are dropped
func translate(op fsnotify.Op) (ports.EventOp, bool) {
	switch {
	case op.Has(fsnotify.Remove):
		return ports.OpRemove, true
	case op.Has(fsnotify.Rename):
		return ports.OpRename, true
	case op.Has(fsnotify.Create):
		return ports.OpCreate, true
	case op.Has(fsnotify.Write):
		return ports.OpWrite, true
	default:
		return 0, false
	}
}
