package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eqlog/eqlog-go/internal/logfinder"
	"github.com/eqlog/eqlog-go/internal/store"
	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

var (
	// auctions flags
	auctionsSince string
	auctionsUntil string
)

var auctionsCmd = &cobra.Command{
	Use:   "auctions [file]",
	Short: "Replay a log file through the auction tracker",
	Long: `Replay an EverQuest log file through the auction tracker and print the
open auctions with their high bids and the completed auctions.

Without a file argument the newest log (of --character, if set) is used.

Examples:
  # Auctions from tonight's raid
  eqlog auctions --character Krizzy --since "2024-03-17T20:00:00-05:00"

  # Store completed auctions
  eqlog auctions eqlog_Krizzy_P1999Green.txt --db eqlog.db

  # JSON snapshot
  eqlog auctions --format jsonl | jq '.completed'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuctions,
}

func init() {
	auctionsCmd.Flags().StringP("log-dir", "d", "",
		"EverQuest Logs directory (auto-detected if not specified)")
	auctionsCmd.Flags().String("character", "",
		"Use this character's newest log")
	auctionsCmd.Flags().StringP("format", "f", "",
		"Output format: jsonl, pretty (default: pretty on a terminal, jsonl otherwise)")
	auctionsCmd.Flags().StringSlice("channels", nil,
		"Channels accepted for auction calls (raid, guild)")
	auctionsCmd.Flags().StringVar(&auctionsSince, "since", "",
		"Only lines at/after timestamp (RFC3339 format)")
	auctionsCmd.Flags().StringVar(&auctionsUntil, "until", "",
		"Only lines before timestamp (RFC3339 format)")
	auctionsCmd.Flags().String("db", "",
		"Also store completed auctions in this SQLite database")
	registerChannelCompletion(auctionsCmd, "channels")
}

func runAuctions(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(settings.Format)
	if err != nil {
		return err
	}
	sinceTime, untilTime, err := parseTimeRange(auctionsSince, auctionsUntil)
	if err != nil {
		return err
	}

	path, err := auctionsLogFile(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr := newCLITracker(path)
	opts := []eqlog.ParseOption{
		eqlog.WithParseTracker(tr),
		eqlog.WithParseTimeRange(sinceTime, untilTime),
		eqlog.WithParseLogger(newLogger()),
	}
	if len(settings.Channels) > 0 {
		opts = append(opts, eqlog.WithParseChannels(settings.ChannelList()...))
	}

	if _, err := eqlog.ReplayAuctions(ctx, path, opts...); err != nil {
		if !errors.Is(err, context.Canceled) || ctx.Err() == nil {
			return fmt.Errorf("replay error: %w", err)
		}
	}

	if settings.Database != "" {
		if err := saveCompleted(context.WithoutCancel(ctx), tr, path); err != nil {
			return err
		}
	}

	return OutputSnapshot(format, tr, time.Now(), os.Stdout)
}

// auctionsLogFile returns the explicit file or the newest matching log.
func auctionsLogFile(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	dir, err := logfinder.FindLogDir(settings.LogDir)
	if err != nil {
		return "", err
	}
	return logfinder.FindLatestLogFile(dir, settings.Character)
}

// newCLITracker builds a tracker from the settings. The log owner is the
// configured character, or the one named by the log file.
func newCLITracker(path string) *auction.Tracker {
	opts := []auction.Option{auction.WithLogger(newLogger())}
	self := settings.Character
	if name, _, ok := logfinder.ParseFileName(path); ok && self == "" {
		self = name
	}
	if self != "" {
		opts = append(opts, auction.WithSelf(self))
	}
	if len(settings.Channels) > 0 {
		opts = append(opts, auction.WithChannels(settings.ChannelList()...))
	}
	if fn := settings.NotOnDkpFunc(); fn != nil {
		opts = append(opts, auction.WithNotOnDkp(fn))
	}
	return auction.NewTracker(opts...)
}

func saveCompleted(ctx context.Context, tr *auction.Tracker, source string) error {
	st, err := store.Open(ctx, settings.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveSession(ctx, store.Session{ID: tr.Session(), Source: source, StartedAt: time.Now()}); err != nil {
		return err
	}
	return st.SaveCompleted(ctx, tr.Session(), tr.Completed())
}
