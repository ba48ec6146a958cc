package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eqlog/eqlog-go/pkg/eqlog/zeal"
)

var (
	// zeal flags
	zealPipe       string
	zealBufferSize int
)

var zealCmd = &cobra.Command{
	Use:   "zeal",
	Short: "Read raid roster updates from the Zeal pipe",
	Long: `Read the JSON message stream written by the Zeal client plugin and print
the raid roster each time it changes.

On Windows the pipe is \\.\pipe\zeal_<pid>. Any readable file or FIFO
works, which is convenient for replaying a captured stream.

Examples:
  eqlog zeal --pipe '\\.\pipe\zeal_12345'
  eqlog zeal --pipe capture.json --format jsonl`,
	RunE: runZeal,
}

func init() {
	zealCmd.Flags().StringVar(&zealPipe, "pipe", "",
		"Path of the Zeal pipe (required)")
	zealCmd.Flags().IntVar(&zealBufferSize, "buffer-size", zeal.DefaultBufferSize,
		"Largest accepted message in bytes")
	zealCmd.Flags().StringP("format", "f", "",
		"Output format: jsonl, pretty (default: pretty on a terminal, jsonl otherwise)")
	_ = zealCmd.MarkFlagRequired("pipe")
}

func runZeal(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(settings.Format)
	if err != nil {
		return err
	}
	if zealPipe == "" {
		return fmt.Errorf("--pipe is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(zealPipe)
	if err != nil {
		return err
	}
	defer f.Close()

	svc := newZealService(zealBufferSize)
	updates, unsubscribe := svc.Subscribe(16)
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- svc.Listen(ctx, f) }()

	for {
		select {
		case roster := <-updates:
			if err := OutputRoster(format, roster, os.Stdout); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		case err := <-done:
			// Print snapshots published before the listener stopped.
			for len(updates) > 0 {
				if err := OutputRoster(format, <-updates, os.Stdout); err != nil {
					return fmt.Errorf("output error: %w", err)
				}
			}
			if pipeDisconnected(err) {
				return nil
			}
			return err
		}
	}
}

// newZealService creates a service that reports read failures on stderr.
func newZealService(bufferSize int) *zeal.Service {
	return zeal.NewService(
		zeal.WithBufferSize(bufferSize),
		zeal.WithLogger(newLogger()),
		zeal.WithErrorHandler(func(err error) {
			if !pipeDisconnected(err) {
				fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			}
		}),
	)
}

// pipeDisconnected reports whether err is the writer closing the pipe,
// which ends a session normally.
func pipeDisconnected(err error) bool {
	return errors.Is(err, zeal.ErrListenerClosed) && errors.Is(err, io.EOF)
}

// listenZeal opens the pipe at path and feeds it to a new service until ctx
// is done. The returned function closes the pipe.
func listenZeal(ctx context.Context, path string) (*zeal.Service, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	svc := newZealService(zeal.DefaultBufferSize)
	go func() { _ = svc.Listen(ctx, f) }()
	return svc, func() { _ = f.Close() }, nil
}
