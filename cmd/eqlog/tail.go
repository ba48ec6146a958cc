package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eqlog/eqlog-go/internal/store"
	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

var (
	// tail flags
	tailIncludeKinds []string
	tailExcludeKinds []string
	tailAuctions     bool
	tailZealPipe     string
	replayLast       int
	replaySince      string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Monitor EverQuest logs and output entries",
	Long: `Monitor the newest EverQuest character log in real time and output
parsed entries. When a newer log appears (another character logs in) the
watcher switches to it.

With --auctions, loot auctions, bids and spent calls are tracked and
reported as they happen.

Examples:
  # Monitor with default settings (auto-detect log directory)
  eqlog tail

  # Follow one character and track auctions
  eqlog tail --character Krizzy --auctions

  # Output only raid membership changes
  eqlog tail --include-kinds joined_raid,left_raid

  # Annotate bids with raid membership from the Zeal pipe
  eqlog tail --auctions --zeal-pipe '\\.\pipe\zeal_12345'

  # Replay the whole current log first
  eqlog tail --replay-last 0  # 0 means from start

  # Pipe to jq for filtering
  eqlog tail --format jsonl | jq 'select(.kind == "dkp_spent")'`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringP("log-dir", "d", "",
		"EverQuest Logs directory (auto-detected if not specified)")
	tailCmd.Flags().String("character", "",
		"Follow only this character's logs")
	tailCmd.Flags().StringP("format", "f", "",
		"Output format: jsonl, pretty (default: pretty on a terminal, jsonl otherwise)")
	tailCmd.Flags().StringSliceVar(&tailIncludeKinds, "include-kinds", nil,
		"Entry kinds to include (comma-separated: attendance,kill,dkp_spent)")
	tailCmd.Flags().StringSliceVar(&tailExcludeKinds, "exclude-kinds", nil,
		"Entry kinds to exclude (comma-separated)")
	tailCmd.Flags().BoolVar(&tailAuctions, "auctions", false,
		"Track loot auctions and print auction events")
	tailCmd.Flags().StringVar(&tailZealPipe, "zeal-pipe", "",
		"Zeal pipe whose raid roster annotates bids (requires --auctions)")
	tailCmd.Flags().String("db", "",
		"Also store entries and completed auctions in this SQLite database")
	addChainFlags(tailCmd)

	// Replay options
	tailCmd.Flags().IntVar(&replayLast, "replay-last", -1,
		"Replay last N lines before tailing (-1 = disabled, 0 = from start)")
	tailCmd.Flags().StringVar(&replaySince, "replay-since", "",
		"Replay entries since timestamp (RFC3339 format, e.g., 2024-03-17T20:00:00Z)")

	// Register completion for entry kind flags
	registerKindCompletion(tailCmd, "include-kinds")
	registerKindCompletion(tailCmd, "exclude-kinds")
}

func runTail(cmd *cobra.Command, args []string) error {
	// Normalize and validate entry kinds
	includes, err := NormalizeKinds(tailIncludeKinds)
	if err != nil {
		return err
	}
	excludes, err := NormalizeKinds(tailExcludeKinds)
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

	if tailZealPipe != "" && !tailAuctions {
		return fmt.Errorf("--zeal-pipe requires --auctions")
	}

	// Validate replay options are not both specified
	if replayLast >= 0 && replaySince != "" {
		return fmt.Errorf("--replay-last and --replay-since cannot be used together")
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchOpts := []eqlog.WatchOption{
		eqlog.WithGuildTag(settings.GuildTag),
		eqlog.WithPopulationWindow(settings.PopulationWindow),
		eqlog.WithLogger(newLogger()),
	}
	if settings.LogDir != "" {
		watchOpts = append(watchOpts, eqlog.WithLogDir(settings.LogDir))
	}
	if settings.Character != "" {
		watchOpts = append(watchOpts, eqlog.WithCharacter(settings.Character))
	}
	if len(settings.Channels) > 0 {
		watchOpts = append(watchOpts, eqlog.WithChannels(settings.ChannelList()...))
	}

	// Handle replay options
	if replayLast >= 0 {
		if replayLast == 0 {
			watchOpts = append(watchOpts, eqlog.WithReplayFromStart())
		} else {
			watchOpts = append(watchOpts, eqlog.WithReplayLastN(replayLast))
		}
	} else if replaySince != "" {
		t, err := time.Parse(time.RFC3339, replaySince)
		if err != nil {
			return fmt.Errorf("invalid --replay-since format: %w", err)
		}
		watchOpts = append(watchOpts, eqlog.WithReplaySinceTime(t))
	}

	// Use library-level filtering (more efficient than CLI-side filtering)
	if len(includes) > 0 {
		watchOpts = append(watchOpts, eqlog.WithIncludeKinds(includes...))
	}
	if len(excludes) > 0 {
		watchOpts = append(watchOpts, eqlog.WithExcludeKinds(excludes...))
	}

	sink, err := openSink(ctx, "tail")
	if err != nil {
		return err
	}
	defer sink.Close()

	// Auction events are delivered on the watcher goroutine; they are
	// forwarded so all output happens here.
	auctionCh := make(chan auction.Event, 64)
	handlerCtx, cancelHandler := context.WithCancel(ctx)
	defer cancelHandler()
	if tailAuctions || sink.st != nil {
		var trackerOpts []auction.Option
		if settings.Character != "" {
			trackerOpts = append(trackerOpts, auction.WithSelf(settings.Character))
		}
		if len(settings.Channels) > 0 {
			trackerOpts = append(trackerOpts, auction.WithChannels(settings.ChannelList()...))
		}
		if fn := settings.NotOnDkpFunc(); fn != nil {
			trackerOpts = append(trackerOpts, auction.WithNotOnDkp(fn))
		}
		if tailZealPipe != "" {
			svc, closePipe, err := listenZeal(ctx, tailZealPipe)
			if err != nil {
				return fmt.Errorf("opening zeal pipe: %w", err)
			}
			defer closePipe()
			trackerOpts = append(trackerOpts, auction.WithRoster(svc.Lookup))
		}
		trackerOpts = append(trackerOpts, auction.WithLogger(newLogger()))
		watchOpts = append(watchOpts,
			eqlog.WithTracker(auction.NewTracker(trackerOpts...)),
			eqlog.WithAuctionHandler(func(ev auction.Event) {
				select {
				case auctionCh <- ev:
				case <-handlerCtx.Done():
				}
			}),
		)
	}

	watcher, err := eqlog.NewWatcher(watchOpts...)
	if err != nil {
		return err
	}
	defer func() {
		cancelHandler() // unblock a pending handler before Close waits
		_ = watcher.Close()
	}()

	if sink.st != nil && watcher.Tracker() != nil {
		// Completed auctions are keyed by the tracker's own session.
		if err := sink.st.SaveSession(ctx, store.Session{ID: watcher.Tracker().Session(), Source: "tail auctions", StartedAt: time.Now()}); err != nil {
			return err
		}
	}

	entries, errs, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}

	flush := time.NewTicker(5 * time.Second)
	defer flush.Stop()
	defer func() { _ = sink.Flush(context.WithoutCancel(ctx)) }()

	// Output loop
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return nil // Channel closed
			}
			if err := OutputEntry(format, e, os.Stdout); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			if err := sink.Add(ctx, e); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}

		case ev := <-auctionCh:
			if tailAuctions {
				if err := OutputAuctionEvent(format, ev, os.Stdout); err != nil {
					return fmt.Errorf("output error: %w", err)
				}
			}
			if sink.st != nil && (ev.Type == auction.EventClosed || ev.Type == auction.EventRemoved || ev.Type == auction.EventSpent) {
				tr := watcher.Tracker()
				if err := sink.st.SaveCompleted(ctx, tr.Session(), tr.Completed()); err != nil {
					fmt.Fprintf(os.Stderr, "warning: %v\n", err)
				}
			}

		case <-flush.C:
			if err := sink.Flush(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}

		case err, ok := <-errs:
			if !ok {
				return nil // Channel closed
			}
			// Always output errors to stderr
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)

		case <-ctx.Done():
			return nil
		}
	}
}
