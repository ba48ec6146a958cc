package eqlog

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/eqlog/eqlog-go/internal/logfinder"
	"github.com/eqlog/eqlog-go/internal/logreader"
	"github.com/eqlog/eqlog-go/internal/parser"
	"github.com/eqlog/eqlog-go/internal/timestamp"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

// ParseLine classifies a single EverQuest log line on its own, without the
// context of earlier lines (population listings need ParseFile).
//
// Return values:
//   - (entries, nil): the line produced zero or more entries
//   - (nil, *ParseError): the line has no valid timestamp prefix
func ParseLine(line string) ([]Entry, error) {
	ts, ok := timestamp.Extract(line)
	if !ok {
		return nil, &ParseError{Line: line, Err: ErrNoTimestamp}
	}
	return parser.New(parser.Config{}).Step(parser.Line{Timestamp: ts, Body: timestamp.Body(line)}), nil
}

// ParseFile parses an EverQuest log file and returns an iterator over entries.
// The file is opened lazily on first iteration, so the returned iterator
// is cheap to create but must be consumed to release resources.
//
// The iterator yields (Entry, error) pairs. When an error occurs:
//   - File open errors: yields (Entry{}, error) once and stops
//   - Lines without a timestamp: skipped by default, or a *ParseError stops
//     iteration if WithParseStopOnError is set
//   - Context cancellation: yields (Entry{}, ctx.Err()) and stops
//
// Example:
//
//	for e, err := range eqlog.ParseFile(ctx, "eqlog_Krizzy_P1999Green.txt") {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("entry: %+v\n", e)
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[Entry, error] {
	if path == "" {
		return func(yield func(Entry, error) bool) {
			yield(Entry{}, errors.New("eqlog: path required"))
		}
	}

	cfg := applyParseOptions(opts)

	return func(yield func(Entry, error) bool) {
		sc, err := logreader.Open(path, logreader.Options{Since: cfg.since, Logger: cfg.logger})
		if err != nil {
			yield(Entry{}, err)
			return
		}
		defer sc.Close()

		chain := parser.New(cfg.parserConfig(cfg.since))

		for sc.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, err)
				return
			}

			line := sc.Text()
			ts, ok := timestamp.Extract(line)
			if !ok {
				if cfg.stopOnError && line != "" {
					yield(Entry{}, &ParseError{Line: line, Err: ErrNoTimestamp})
					return
				}
				continue
			}
			if !cfg.until.IsZero() && !ts.Before(cfg.until) {
				return // Past the time window, stop iteration
			}

			body := timestamp.Body(line)
			if cfg.tracker != nil && !ts.Before(cfg.since) {
				cfg.tracker.Process(ts, body)
			}

			for _, e := range chain.Step(parser.Line{Timestamp: ts, Body: body}) {
				if !cfg.filter.Allows(e.Kind) {
					continue
				}
				if !yield(e, nil) {
					return // Consumer requested stop (break)
				}
			}
		}

		if err := sc.Err(); err != nil {
			yield(Entry{}, err)
		}
	}
}

// ParseFileAll is a convenience function that parses a log file and collects
// all entries into a slice. Stops on first error and returns entries collected so far.
//
// For large files, consider using ParseFile directly to avoid loading all entries
// into memory at once.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]Entry, error) {
	entries := make([]Entry, 0, 256)
	for e, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ReplayAuctions feeds a log file through an auction tracker and returns it.
// Unless WithParseTracker supplies one, a new tracker is created whose self
// name is taken from the file name when it follows the
// eqlog_<Character>_<server>.txt convention.
//
// Only WithParseTimeRange/Since/Until, WithParseChannels, WithParseLogger,
// WithParseStopOnError and WithParseTracker affect replay.
func ReplayAuctions(ctx context.Context, path string, opts ...ParseOption) (*auction.Tracker, error) {
	cfg := applyParseOptions(opts)

	tr := cfg.tracker
	if tr == nil {
		trackerOpts := []auction.Option{auction.WithLogger(cfg.logger)}
		if name, _, ok := logfinder.ParseFileName(path); ok {
			trackerOpts = append(trackerOpts, auction.WithSelf(name))
		}
		if cfg.channels != nil {
			trackerOpts = append(trackerOpts, auction.WithChannels(cfg.channels...))
		}
		tr = auction.NewTracker(trackerOpts...)
		opts = append(opts[:len(opts):len(opts)], WithParseTracker(tr))
	}

	for _, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return tr, err
		}
	}
	return tr, nil
}

// ParseDirOption configures ParseDir behavior.
type ParseDirOption func(*parseDirConfig)

// parseDirConfig holds internal configuration for directory parsing.
type parseDirConfig struct {
	parseOpts []ParseOption
	logDir    string
	character string
	paths     []string // explicit file paths (optional)
	stop      bool
}

// applyParseDirOptions applies functional options to a parseDirConfig.
func applyParseDirOptions(opts []ParseDirOption) *parseDirConfig {
	cfg := &parseDirConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithDirLogDir sets the log directory to parse.
// If not set, auto-detects from default Windows locations.
func WithDirLogDir(dir string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.logDir = dir
	}
}

// WithDirCharacter parses only the named character's logs.
func WithDirCharacter(name string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.character = name
	}
}

// WithDirPaths sets explicit file paths to parse.
// If set, LogDir is ignored.
func WithDirPaths(paths ...string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.paths = paths
	}
}

// WithDirIncludeKinds filters entries to only include the specified kinds.
func WithDirIncludeKinds(kinds ...Kind) ParseDirOption {
	return WithDirParseOptions(WithParseIncludeKinds(kinds...))
}

// WithDirExcludeKinds filters out entries of the specified kinds.
func WithDirExcludeKinds(kinds ...Kind) ParseDirOption {
	return WithDirParseOptions(WithParseExcludeKinds(kinds...))
}

// WithDirTimeRange filters entries to only include those within the time range.
func WithDirTimeRange(since, until time.Time) ParseDirOption {
	return WithDirParseOptions(WithParseTimeRange(since, until))
}

// WithDirStopOnError stops parsing on the first error instead of skipping.
func WithDirStopOnError(stop bool) ParseDirOption {
	return func(c *parseDirConfig) {
		c.stop = stop
		c.parseOpts = append(c.parseOpts, WithParseStopOnError(stop))
	}
}

// WithDirParseOptions applies ParseOptions to every file.
func WithDirParseOptions(opts ...ParseOption) ParseDirOption {
	return func(c *parseDirConfig) {
		c.parseOpts = append(c.parseOpts, opts...)
	}
}

// ParseDir parses all EverQuest log files in a directory, yielding entries
// file by file (by modification time, oldest first).
//
// The iterator yields (Entry, error) pairs. When an error occurs:
//   - Directory access errors: yields (Entry{}, error) once and stops
//   - File errors: skips to next file by default, or stops if WithDirStopOnError is set
func ParseDir(ctx context.Context, opts ...ParseDirOption) iter.Seq2[Entry, error] {
	cfg := applyParseDirOptions(opts)

	return func(yield func(Entry, error) bool) {
		files := cfg.paths
		if len(files) == 0 {
			logDir, err := logfinder.FindLogDir(cfg.logDir)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			files, err = logfinder.ListLogFiles(logDir)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			files = filterCharacter(files, cfg.character)
		}

		if len(files) == 0 {
			yield(Entry{}, ErrNoLogFiles)
			return
		}

		for _, file := range files {
			if ctx.Err() != nil {
				yield(Entry{}, ctx.Err())
				return
			}

			for e, err := range ParseFile(ctx, file, cfg.parseOpts...) {
				if err != nil {
					if cfg.stop || ctx.Err() != nil {
						yield(Entry{}, err)
						return
					}
					break // Skip to next file on error
				}
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

func filterCharacter(files []string, character string) []string {
	if character == "" {
		return files
	}
	var out []string
	for _, f := range files {
		if name, _, ok := logfinder.ParseFileName(f); ok && strings.EqualFold(name, character) {
			out = append(out, f)
		}
	}
	return out
}
