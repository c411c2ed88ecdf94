package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/naveenspark/roster/internal/log"
)

// DefaultDebounce coalesces the bursts of events an atomic rewrite produces.
const DefaultDebounce = 200 * time.Millisecond

// Watch reloads the session whenever its file changes and sends the new
// logged-in state on the returned channel. The directory is watched rather
// than the file because saves replace the file by rename. The channel is
// closed when ctx is cancelled.
func (s *Session) Watch(ctx context.Context, debounce time.Duration) (<-chan bool, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session.Watch: creating fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		fsw.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("session.Watch: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("session.Watch: watching directory %s: %w", dir, err)
	}

	out := make(chan bool, 1)
	go s.watchLoop(ctx, fsw, debounce, out)
	return out, nil
}

func (s *Session) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, debounce time.Duration, out chan bool) {
	defer close(out)
	defer fsw.Close() //nolint:errcheck

	var timer *time.Timer
	var fire <-chan time.Time
	name := filepath.Base(s.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				log.ErrorErr(log.CatSession, "reload after change failed", err)
				continue
			}
			state := s.LoggedIn()
			log.Debug(log.CatSession, "session file changed", "logged_in", state)
			// Keep only the latest state for a slow reader.
			select {
			case <-out:
			default:
			}
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatSession, "watcher error", err)
		}
	}
}
