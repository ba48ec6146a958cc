// Package tailer follows a growing EverQuest log file and yields its lines
// already split into timestamp and body.
package tailer

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nxadm/tail"

	"github.com/eqlog/eqlog-go/internal/logreader"
	"github.com/eqlog/eqlog-go/internal/timestamp"
)

const errBuffer = 16

// Line is one timestamped log line.
type Line struct {
	Timestamp time.Time
	Body      string
}

// Split separates a decoded log line into its timestamp and body. It
// returns false for lines without a valid "[Www Mon dd HH:mm:ss yyyy] "
// prefix, such as the blank lines the client sometimes writes on zoning.
func Split(text string, loc *time.Location) (Line, bool) {
	if loc == nil {
		loc = time.Local
	}
	ts, ok := timestamp.ExtractIn(text, loc)
	if !ok {
		return Line{}, false
	}
	return Line{Timestamp: ts, Body: timestamp.Body(text)}, true
}

// Config controls how a log file is followed.
type Config struct {
	// FromStart reads the existing contents before following. Otherwise
	// only lines appended after New are delivered.
	FromStart bool

	// Poll stats the file on an interval instead of relying on change
	// notifications.
	Poll bool

	// Location is the zone the client wrote timestamps in. Nil means local.
	Location *time.Location
}

// DefaultConfig follows from the end of the file. The client keeps its log
// open and Windows only reports size changes once the handle is flushed, so
// polling is the default there.
func DefaultConfig() Config {
	return Config{Poll: runtime.GOOS == "windows"}
}

// Tailer delivers the timestamped lines appended to one log file.
type Tailer struct {
	t      *tail.Tail
	loc    *time.Location
	cancel context.CancelFunc
	lines  chan Line
	errs   chan error
	doneCh chan struct{}

	skipped atomic.Int64

	stopOnce sync.Once
	stopErr  error
}

// New starts following path, which must exist. The tailer stops when ctx
// is done or Stop is called.
func New(ctx context.Context, path string, cfg Config) (*Tailer, error) {
	whence := 2
	if cfg.FromStart {
		whence = 0
	}
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		Poll:      cfg.Poll,
		MustExist: true,
		Location:  &tail.SeekInfo{Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("tailing %s: %w", path, err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(ctx)
	tl := &Tailer{
		t:      t,
		loc:    loc,
		cancel: cancel,
		lines:  make(chan Line),
		errs:   make(chan error, errBuffer),
		doneCh: make(chan struct{}),
	}
	go tl.run(ctx)
	return tl, nil
}

// Lines is closed when the tailer stops.
func (t *Tailer) Lines() <-chan Line { return t.lines }

// Errors reports read failures. Errors beyond the buffer are dropped.
func (t *Tailer) Errors() <-chan error { return t.errs }

// Skipped counts lines dropped for lacking a timestamp.
func (t *Tailer) Skipped() int64 { return t.skipped.Load() }

// Stop ends tailing and waits for the delivery goroutine. Later calls
// return the first result.
func (t *Tailer) Stop() error {
	t.stopOnce.Do(func() {
		t.cancel()
		<-t.doneCh
		t.stopErr = t.t.Stop()
		t.t.Cleanup()
	})
	return t.stopErr
}

func (t *Tailer) run(ctx context.Context) {
	defer close(t.doneCh)
	defer close(t.lines)
	defer close(t.errs)

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-t.t.Lines:
			if !ok {
				return
			}
			if raw.Err != nil {
				t.report(fmt.Errorf("reading %s: %w", t.t.Filename, raw.Err))
				continue
			}
			line, ok := Split(logreader.DecodeString(strings.TrimSuffix(raw.Text, "\r")), t.loc)
			if !ok {
				t.skipped.Add(1)
				continue
			}
			select {
			case t.lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (t *Tailer) report(err error) {
	select {
	case t.errs <- err:
	default:
	}
}
