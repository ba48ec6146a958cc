package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/eqlog/eqlog-go/internal/store"
	"github.com/eqlog/eqlog-go/pkg/eqlog"
)

var (
	// parse flags
	parseIncludeKinds []string
	parseExcludeKinds []string
	parseSince        string
	parseUntil        string
	parseStopOnError  bool
)

// storeBatch is how many entries are buffered before writing to --db.
const storeBatch = 500

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse EverQuest log files (batch mode)",
	Long: `Parse all EverQuest character logs in a directory and output entries.

Unlike 'tail', this command processes historical files without real-time
following. It reads all matching log files in chronological order.

Examples:
  # Parse all logs in auto-detected directory
  eqlog parse

  # Only one character's logs
  eqlog parse --log-dir "C:\Users\Public\Daybreak Game Company\Installed Games\EverQuest\Logs" --character Krizzy

  # Filter by time range
  eqlog parse --since "2024-03-17T20:00:00-05:00" --until "2024-03-18T00:00:00-05:00"

  # Only DKP spent calls
  eqlog parse --include-kinds dkp_spent

  # Store entries in SQLite
  eqlog parse eqlog_Krizzy_P1999Green.txt --db eqlog.db

  # Pipe to jq for filtering
  eqlog parse --format jsonl | jq 'select(.kind == "kill")'`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("log-dir", "d", "",
		"EverQuest Logs directory (auto-detected if not specified)")
	parseCmd.Flags().String("character", "",
		"Only parse this character's logs")
	parseCmd.Flags().StringSliceVar(&parseIncludeKinds, "include-kinds", nil,
		"Entry kinds to include (comma-separated: attendance,kill,dkp_spent)")
	parseCmd.Flags().StringSliceVar(&parseExcludeKinds, "exclude-kinds", nil,
		"Entry kinds to exclude (comma-separated)")
	parseCmd.Flags().StringVar(&parseSince, "since", "",
		"Only entries at/after timestamp (RFC3339 format, e.g., 2024-03-17T20:00:00Z)")
	parseCmd.Flags().StringVar(&parseUntil, "until", "",
		"Only entries before timestamp (RFC3339 format)")
	parseCmd.Flags().StringP("format", "f", "",
		"Output format: jsonl, pretty (default: pretty on a terminal, jsonl otherwise)")
	parseCmd.Flags().BoolVar(&parseStopOnError, "stop-on-error", false,
		"Stop on first error instead of skipping")
	parseCmd.Flags().String("db", "",
		"Also store entries in this SQLite database")
	addChainFlags(parseCmd)

	registerKindCompletion(parseCmd, "include-kinds")
	registerKindCompletion(parseCmd, "exclude-kinds")
}

// addChainFlags registers the parser settings shared by parse and tail.
func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("guild-tag", "",
		`Guild tag identifying /who roster lines, e.g. "<Europa>"`)
	cmd.Flags().StringSlice("channels", nil,
		"Channels accepted for DKP calls (raid, guild)")
	cmd.Flags().Duration("population-window", 0,
		"How long after an attendance call to wait for a /who listing")
	registerChannelCompletion(cmd, "channels")
}

// chainParseOptions converts the loaded settings into parse options.
func chainParseOptions() []eqlog.ParseOption {
	opts := []eqlog.ParseOption{
		eqlog.WithParseGuildTag(settings.GuildTag),
		eqlog.WithParsePopulationWindow(settings.PopulationWindow),
		eqlog.WithParseLogger(newLogger()),
	}
	if len(settings.Channels) > 0 {
		opts = append(opts, eqlog.WithParseChannels(settings.ChannelList()...))
	}
	return opts
}

func runParse(cmd *cobra.Command, args []string) error {
	// Normalize and validate entry kinds
	includes, err := NormalizeKinds(parseIncludeKinds)
	if err != nil {
		return err
	}
	excludes, err := NormalizeKinds(parseExcludeKinds)
	if err != nil {
		return err
	}
	if err := RejectOverlap(includes, excludes); err != nil {
		return err
	}

	format, err := resolveFormat(settings.Format)
	if err != nil {
		return err
	}

	sinceTime, untilTime, err := parseTimeRange(parseSince, parseUntil)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []eqlog.ParseDirOption{eqlog.WithDirParseOptions(chainParseOptions()...)}
	if settings.LogDir != "" {
		opts = append(opts, eqlog.WithDirLogDir(settings.LogDir))
	}
	if settings.Character != "" {
		opts = append(opts, eqlog.WithDirCharacter(settings.Character))
	}

	// Use positional args as explicit file paths
	if len(args) > 0 {
		opts = append(opts, eqlog.WithDirPaths(args...))
	}

	if len(includes) > 0 {
		opts = append(opts, eqlog.WithDirIncludeKinds(includes...))
	}
	if len(excludes) > 0 {
		opts = append(opts, eqlog.WithDirExcludeKinds(excludes...))
	}
	if !sinceTime.IsZero() || !untilTime.IsZero() {
		opts = append(opts, eqlog.WithDirTimeRange(sinceTime, untilTime))
	}
	if parseStopOnError {
		opts = append(opts, eqlog.WithDirStopOnError(true))
	}

	sink, err := openSink(ctx, "parse")
	if err != nil {
		return err
	}
	defer sink.Close()

	for e, err := range eqlog.ParseDir(ctx, opts...) {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				break
			}
			return fmt.Errorf("parse error: %w", err)
		}

		if err := OutputEntry(format, e, os.Stdout); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if err := sink.Add(ctx, e); err != nil {
			return err
		}
	}

	// Flush with a fresh context so entries read before Ctrl+C are kept.
	return sink.Flush(context.WithoutCancel(ctx))
}

// entrySink buffers entries for the --db store. The zero value discards.
type entrySink struct {
	st      *store.Store
	session uuid.UUID
	buf     []eqlog.Entry
}

// openSink opens the configured database and records a new session.
func openSink(ctx context.Context, source string) (*entrySink, error) {
	if settings.Database == "" {
		return &entrySink{}, nil
	}
	st, err := store.Open(ctx, settings.Database)
	if err != nil {
		return nil, err
	}
	s := &entrySink{st: st, session: uuid.New()}
	if err := st.SaveSession(ctx, store.Session{ID: s.session, Source: source, StartedAt: time.Now()}); err != nil {
		_ = st.Close()
		return nil, err
	}
	return s, nil
}

func (s *entrySink) Add(ctx context.Context, e eqlog.Entry) error {
	if s.st == nil {
		return nil
	}
	s.buf = append(s.buf, e)
	if len(s.buf) >= storeBatch {
		return s.Flush(ctx)
	}
	return nil
}

func (s *entrySink) Flush(ctx context.Context) error {
	if s.st == nil || len(s.buf) == 0 {
		return nil
	}
	err := s.st.SaveEntries(ctx, s.session, s.buf)
	s.buf = s.buf[:0]
	return err
}

func (s *entrySink) Close() error {
	if s.st == nil {
		return nil
	}
	return s.st.Close()
}

// parseTimeRange parses since and until strings into time.Time values.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	var sinceTime, untilTime time.Time
	var err error

	if since != "" {
		sinceTime, err = time.Parse(time.RFC3339, since)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since format: %w (expected RFC3339, e.g., 2024-03-17T20:00:00Z)", err)
		}
	}

	if until != "" {
		untilTime, err = time.Parse(time.RFC3339, until)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until format: %w (expected RFC3339, e.g., 2024-03-17T20:00:00Z)", err)
		}
	}

	// Validate that since is before until
	if !sinceTime.IsZero() && !untilTime.IsZero() && sinceTime.After(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}

	return sinceTime, untilTime, nil
}
