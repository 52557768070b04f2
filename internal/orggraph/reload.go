package orggraph

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pesio-ai/be-approval-chains/internal/logger"
)

// Reloadable rebuilds its snapshot from the directory source.
type Reloadable interface {
	Reload() error
}

// Reloader watches the directory file and triggers a reload after writes settle.
// A failed reload leaves the previous snapshot in place.
type Reloader struct {
	watcher  *fsnotify.Watcher
	target   Reloadable
	debounce time.Duration
	log      *logger.Logger

	mu      sync.Mutex
	reloads int
	fails   int
}

// NewReloader creates a file watcher for path.
func NewReloader(target Reloadable, path string, debounce time.Duration, log *logger.Logger) (*Reloader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot watch directory file %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Reloader{
		watcher:  watcher,
		target:   target,
		debounce: debounce,
		log:      log.Component("reloader"),
	}, nil
}

// Run watches for file changes. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(r.debounce, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Warn().Err(err).Msg("directory watcher error")
		}
	}
}

// Counts returns successful and failed reloads so far.
func (r *Reloader) Counts() (reloads, fails int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads, r.fails
}

func (r *Reloader) reload() {
	err := r.target.Reload()

	r.mu.Lock()
	if err != nil {
		r.fails++
	} else {
		r.reloads++
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error().Err(err).Msg("directory reload failed; keeping previous snapshot")
		return
	}
	r.log.Info().Msg("directory reloaded")
}
