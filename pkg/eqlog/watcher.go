package eqlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eqlog/eqlog-go/internal/logfinder"
	"github.com/eqlog/eqlog-go/internal/logreader"
	"github.com/eqlog/eqlog-go/internal/parser"
	"github.com/eqlog/eqlog-go/internal/tailer"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

// Watcher follows the newest EverQuest character log, switching files when
// a newer log appears.
type Watcher struct {
	cfg     *watchConfig
	logDir  string
	logger  *slog.Logger
	tracker *auction.Tracker

	mu       sync.Mutex
	closed   bool
	cancel   context.CancelFunc // cancel func to stop the goroutine
	doneCh   chan struct{}      // signals when goroutine has exited
	watching bool               // true if Watch() has been called
}

// NewWatcher creates a watcher.
// Validates options and checks log directory existence.
// Does NOT start goroutines (cheap to call).
// Returns error for invalid options or missing log directory.
func NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logDir, err := logfinder.FindLogDir(cfg.logDir)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tr := cfg.tracker
	if tr == nil && cfg.onAuction != nil {
		trackerOpts := []auction.Option{auction.WithLogger(logger)}
		if cfg.character != "" {
			trackerOpts = append(trackerOpts, auction.WithSelf(cfg.character))
		} else if latest, err := logfinder.FindLatestLogFile(logDir, ""); err == nil {
			if name, _, ok := logfinder.ParseFileName(latest); ok {
				trackerOpts = append(trackerOpts, auction.WithSelf(name))
			}
		}
		if cfg.channels != nil {
			trackerOpts = append(trackerOpts, auction.WithChannels(cfg.channels...))
		}
		tr = auction.NewTracker(trackerOpts...)
	}

	return &Watcher{
		cfg:     cfg,
		logDir:  logDir,
		logger:  logger,
		tracker: tr,
	}, nil
}

// Tracker returns the auction tracker fed by this watcher, or nil when
// neither WithTracker nor WithAuctionHandler was given.
func (w *Watcher) Tracker() *auction.Tracker { return w.tracker }

// LogDir returns the resolved log directory.
func (w *Watcher) LogDir() string { return w.logDir }

// Watch starts watching and returns channels.
// Starts internal goroutines here.
// When ctx is cancelled, channels are closed automatically.
// Both channels close on ctx.Done() or fatal error.
// Watch can only be called once per Watcher instance.
func (w *Watcher) Watch(ctx context.Context) (<-chan Entry, <-chan error, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, nil, ErrWatcherClosed
	}
	if w.watching {
		w.mu.Unlock()
		return nil, nil, ErrAlreadyWatching
	}
	w.watching = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	entryCh := make(chan Entry)
	errCh := make(chan error, 16)

	go w.run(ctx, entryCh, errCh)

	return entryCh, errCh, nil
}

// Close stops the watcher and releases resources.
// Safe to call multiple times.
// Blocks until the goroutine has exited.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true

	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

// stream is the per-file state of the run loop.
type stream struct {
	path  string
	chain *parser.Chain
	since time.Time
}

func (w *Watcher) newStream(path string, since time.Time) *stream {
	return &stream{
		path:  path,
		chain: parser.New(w.cfg.parserConfig(since)),
		since: since,
	}
}

func (w *Watcher) run(ctx context.Context, entryCh chan<- Entry, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(entryCh)
	defer close(errCh)

	logFile, err := logfinder.FindLatestLogFile(w.logDir, w.cfg.character)
	if err != nil {
		sendError(errCh, &WatchError{Op: WatchOpFindLatest, Path: w.logDir, Err: err})
		return
	}

	replay := w.cfg.replay
	var since time.Time
	if replay.Mode == ReplaySinceTime {
		since = replay.Since
	}
	cur := w.newStream(logFile, since)

	tcfg := tailer.DefaultConfig()
	tcfg.FromStart = replay.Mode == ReplayFromStart || replay.Mode == ReplaySinceTime

	if replay.Mode == ReplayLastN && replay.LastN > 0 {
		if err := w.replayLastN(ctx, cur, entryCh); err != nil {
			sendError(errCh, &WatchError{Op: WatchOpReplay, Path: logFile, Err: err})
		}
	}

	t, err := tailer.New(ctx, logFile, tcfg)
	if err != nil {
		sendError(errCh, &WatchError{Op: WatchOpTail, Path: logFile, Err: err})
		return
	}
	defer func() { _ = t.Stop() }()

	w.logger.Info("watching log file", "path", logFile, "replay", replay.Mode)

	pollInterval := w.cfg.pollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	rotationTicker := time.NewTicker(pollInterval)
	defer rotationTicker.Stop()

	// Directory notifications speed up rotation; polling remains the fallback.
	var notify <-chan string
	var notifyErrs <-chan error
	if paths, errs, err := logfinder.WatchDir(ctx, w.logDir); err != nil {
		sendError(errCh, &WatchError{Op: WatchOpNotify, Path: w.logDir, Err: err})
	} else {
		notify, notifyErrs = paths, errs
	}

	rotate := func() {
		newFile, err := logfinder.FindLatestLogFile(w.logDir, w.cfg.character)
		if err != nil {
			sendError(errCh, &WatchError{Op: WatchOpRotation, Path: w.logDir, Err: err})
			return
		}
		if newFile == cur.path {
			return
		}
		cfg := tailer.DefaultConfig()
		cfg.FromStart = true
		newTailer, err := tailer.New(ctx, newFile, cfg)
		if err != nil {
			// Keep following the old file; the next tick retries.
			sendError(errCh, &WatchError{Op: WatchOpRotation, Path: newFile, Err: err})
			return
		}
		_ = t.Stop()
		w.logger.Info("switched log file", "from", cur.path, "to", newFile)
		t = newTailer
		cur = w.newStream(newFile, time.Time{})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines():
			if !ok {
				return
			}
			if !w.processLine(ctx, cur, line, entryCh) {
				return
			}
		case err, ok := <-t.Errors():
			if !ok {
				return
			}
			sendError(errCh, &WatchError{Op: WatchOpTail, Path: cur.path, Err: err})
		case <-rotationTicker.C:
			rotate()
		case path, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			if path != cur.path {
				rotate()
			}
		case err, ok := <-notifyErrs:
			if !ok {
				notifyErrs = nil
				continue
			}
			sendError(errCh, &WatchError{Op: WatchOpNotify, Path: w.logDir, Err: err})
		}
	}
}

// processLine classifies one line, feeds the tracker and sends the
// resulting entries. It returns false when ctx is done.
func (w *Watcher) processLine(ctx context.Context, s *stream, line tailer.Line, entryCh chan<- Entry) bool {
	if w.tracker != nil && !line.Timestamp.Before(s.since) {
		for _, ev := range w.tracker.Process(line.Timestamp, line.Body) {
			if w.cfg.onAuction != nil {
				w.cfg.onAuction(ev)
			}
		}
	}

	for _, e := range s.chain.Step(parser.Line{Timestamp: line.Timestamp, Body: line.Body}) {
		if !w.cfg.filter.Allows(e.Kind) {
			continue
		}
		select {
		case entryCh <- e:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// replayLastN reads and processes the last N lines from the log file.
func (w *Watcher) replayLastN(ctx context.Context, s *stream, entryCh chan<- Entry) error {
	lines, err := logreader.LastLines(s.path, w.cfg.replay.LastN)
	if err != nil {
		return err
	}

	for _, text := range lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, ok := tailer.Split(text, nil)
		if !ok {
			continue
		}
		if !w.processLine(ctx, s, line, entryCh) {
			return ctx.Err()
		}
	}
	return nil
}

// sendError sends an error non-blocking.
func sendError(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
		// Drop error if channel is full
	}
}

// Watch is a convenience function that creates a watcher and starts watching.
// Returns error immediately for initialization failures.
//
// The watcher is closed when ctx is cancelled.
func Watch(ctx context.Context, opts ...WatchOption) (<-chan Entry, <-chan error, error) {
	w, err := NewWatcher(opts...)
	if err != nil {
		return nil, nil, err
	}
	return w.Watch(ctx)
}
