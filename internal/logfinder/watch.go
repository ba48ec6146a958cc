package logfinder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// WatchDir reports character logs created or written in dir until ctx is
// cancelled. Watch errors are sent on the error channel; both channels are
// closed when watching stops.
func WatchDir(ctx context.Context, dir string) (<-chan string, <-chan error, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	paths := make(chan string, 16)
	errs := make(chan error, 4)
	go func() {
		defer close(errs)
		defer close(paths)
		defer fsw.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if ok, _ := doublestar.Match(LogPattern, filepath.Base(ev.Name)); !ok {
					continue
				}
				select {
				case paths <- ev.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()
	return paths, errs, nil
}
