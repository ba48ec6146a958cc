package eqlog

import (
	"errors"
	"fmt"

	"github.com/eqlog/eqlog-go/internal/logfinder"
)

// Sentinel errors returned by this package.
var (
	// ErrLogDirNotFound is returned when the EverQuest log directory
	// cannot be found or accessed.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrNoLogFiles is returned when no log files are found
	// in the specified directory.
	ErrNoLogFiles = logfinder.ErrNoLogFiles

	// ErrNoTimestamp is wrapped by ParseError for lines without a valid
	// "[Www Mon dd HH:mm:ss yyyy] " prefix.
	ErrNoTimestamp = errors.New("eqlog: line has no timestamp")

	// ErrWatcherClosed is returned by Watch after Close.
	ErrWatcherClosed = errors.New("eqlog: watcher closed")

	// ErrAlreadyWatching is returned when Watch is called twice.
	ErrAlreadyWatching = errors.New("eqlog: watch already called")
)

// ParseError is returned when a log line cannot be parsed and stop-on-error
// is enabled.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WatchOp names the watcher operation that failed.
type WatchOp string

const (
	WatchOpFindLatest WatchOp = "find_latest"
	WatchOpTail       WatchOp = "tail"
	WatchOpReplay     WatchOp = "replay"
	WatchOpRotation   WatchOp = "rotation"
	WatchOpNotify     WatchOp = "notify"
)

// WatchError is sent on the error channel for failures during watching.
type WatchError struct {
	Op   WatchOp
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }
