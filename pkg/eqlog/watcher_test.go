package eqlog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

func newLogDir(t *testing.T, name string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\r\n"); err != nil {
		t.Fatal(err)
	}
}

func nextEntry(t *testing.T, ctx context.Context, entries <-chan eqlog.Entry, errs <-chan error) eqlog.Entry {
	t.Helper()
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				t.Fatal("entries channel closed")
			}
			return e
		case err, ok := <-errs:
			if ok && err != nil {
				var we *eqlog.WatchError
				if errors.As(err, &we) && we.Op == eqlog.WatchOpNotify {
					continue
				}
				t.Fatalf("unexpected error: %v", err)
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for entry")
		}
	}
}

func TestNewWatcher_InvalidLogDir(t *testing.T) {
	_, err := eqlog.NewWatcher(eqlog.WithLogDir("/nonexistent/path"))
	if !errors.Is(err, eqlog.ErrLogDirNotFound) {
		t.Errorf("NewWatcher() error = %v, want %v", err, eqlog.ErrLogDirNotFound)
	}
}

func TestNewWatcher_InvalidOptions(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")
	tests := []struct {
		name string
		opts []eqlog.WatchOption
	}{
		{"negative last n", []eqlog.WatchOption{eqlog.WithReplayLastN(-1)}},
		{"last n over max", []eqlog.WatchOption{eqlog.WithMaxReplayLines(10), eqlog.WithReplayLastN(11)}},
		{"since without time", []eqlog.WatchOption{eqlog.WithReplay(eqlog.ReplayConfig{Mode: eqlog.ReplaySinceTime})}},
		{"negative poll", []eqlog.WatchOption{eqlog.WithPollInterval(-time.Second)}},
		{"negative window", []eqlog.WatchOption{eqlog.WithPopulationWindow(-time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]eqlog.WatchOption{eqlog.WithLogDir(dir)}, tt.opts...)
			if _, err := eqlog.NewWatcher(opts...); err == nil {
				t.Error("NewWatcher() expected error")
			}
		})
	}
}

func TestWatcher_ReceivesEntries(t *testing.T) {
	dir, logFile := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	w, err := eqlog.NewWatcher(eqlog.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	// Give watcher time to start
	time.Sleep(100 * time.Millisecond)
	appendLine(t, logFile, stamp(0)+"Krizzy has joined the raid.")

	e := nextEntry(t, ctx, entries, errs)
	if e.Kind != eqlog.KindJoinedRaid || e.Character != "Krizzy" {
		t.Errorf("entry = %+v", e)
	}
}

func TestWatcher_ReplayFromStartWithFilter(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "eqlog_Krizzy_P1999Green.txt")
	writeLog(t, logFile, sampleBodies...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := eqlog.Watch(ctx,
		eqlog.WithLogDir(dir),
		eqlog.WithReplayFromStart(),
		eqlog.WithIncludeKinds(eqlog.KindDkpSpent),
	)
	if err != nil {
		t.Fatal(err)
	}

	e := nextEntry(t, ctx, entries, errs)
	if e.Kind != eqlog.KindDkpSpent || e.Amount != 10 {
		t.Errorf("entry = %+v", e)
	}
}

func TestWatcher_ReplayLastN(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "eqlog_Krizzy_P1999Green.txt")
	writeLog(t, logFile, sampleBodies...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir), eqlog.WithReplayLastN(1))
	if err != nil {
		t.Fatal(err)
	}

	e := nextEntry(t, ctx, entries, errs)
	if e.Kind != eqlog.KindLeftRaid || e.Character != "Bob" {
		t.Errorf("entry = %+v, want only the last line", e)
	}
}

func TestWatcher_ReplaySinceTime(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "eqlog_Krizzy_P1999Green.txt")
	writeLog(t, logFile, sampleBodies...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	since := time.Date(2024, 3, 17, 21, 0, 3, 0, time.Local)
	entries, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir), eqlog.WithReplaySinceTime(since))
	if err != nil {
		t.Fatal(err)
	}

	e := nextEntry(t, ctx, entries, errs)
	if e.Kind != eqlog.KindLeftRaid {
		t.Errorf("entry = %+v, want the line at %v", e, since)
	}
}

func TestWatcher_AuctionHandler(t *testing.T) {
	dir, logFile := newLogDir(t, "eqlog_Leader_P1999Green.txt")

	var mu sync.Mutex
	var got []auction.EventType
	w, err := eqlog.NewWatcher(
		eqlog.WithLogDir(dir),
		eqlog.WithAuctionHandler(func(ev auction.Event) {
			mu.Lock()
			got = append(got, ev.Type)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if w.Tracker() == nil {
		t.Fatal("Tracker() = nil with an auction handler")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, errs, err := w.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	appendLine(t, logFile, stamp(0)+"You tell your raid, ':::Crystalline Spear::: BIDS OPEN'")
	appendLine(t, logFile, stamp(1)+"Krizzy tells the raid, 'Crystalline Spear 10'")
	// The joined line marks that the two auction lines were consumed.
	appendLine(t, logFile, stamp(2)+"Krizzy has joined the raid.")

	for {
		e := nextEntry(t, ctx, entries, errs)
		if e.Kind == eqlog.KindJoinedRaid {
			break
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != auction.EventOpened || got[1] != auction.EventBid {
		t.Errorf("auction events = %v", got)
	}
	open := w.Tracker().Open()
	if len(open) != 1 || open[0].Auctioneer != "Leader" {
		t.Errorf("open = %+v", open)
	}
}

func TestWatcher_Rotation(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "eqlog_Krizzy_P1999Green.txt"), past, past); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir), eqlog.WithPollInterval(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	newer := filepath.Join(dir, "eqlog_Bob_P1999Green.txt")
	writeLog(t, newer, "Bob has joined the raid.")

	e := nextEntry(t, ctx, entries, errs)
	if e.Character != "Bob" {
		t.Errorf("entry = %+v, want line from the new file", e)
	}
}

func TestWatcher_RotationFailureKeepsOldFile(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs a file the current user cannot open")
	}
	dir, oldPath := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(oldPath, past, past); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir), eqlog.WithPollInterval(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)
	locked := filepath.Join(dir, "eqlog_Bob_P1999Green.txt")
	if err := os.WriteFile(locked, nil, 0o000); err != nil {
		t.Fatal(err)
	}

	// The switch fails until the new file is readable.
	for rotationErr := false; !rotationErr; {
		select {
		case err := <-errs:
			var we *eqlog.WatchError
			if errors.As(err, &we) && we.Op == eqlog.WatchOpRotation {
				rotationErr = true
			}
		case e := <-entries:
			t.Fatalf("unexpected entry %+v", e)
		case <-ctx.Done():
			t.Fatal("timeout waiting for rotation error")
		}
	}

	appendLine(t, oldPath, stamp(0)+"Krizzy has joined the raid.")
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				t.Fatal("entries closed after failed rotation")
			}
			if e.Character != "Krizzy" {
				t.Errorf("entry = %+v, want line from the old file", e)
			}
			return
		case <-errs:
		case <-ctx.Done():
			t.Fatal("timeout waiting for entry from the old file")
		}
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	w, err := eqlog.NewWatcher(eqlog.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	entries, _, err := w.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	cancel()

	select {
	case _, ok := <-entries:
		if ok {
			t.Error("expected entries channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for entries channel to close")
	}
}

func TestWatcher_CloseStopsGoroutine(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	w, err := eqlog.NewWatcher(eqlog.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}

	entries, _, err := w.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() timed out")
	}

	select {
	case _, ok := <-entries:
		if ok {
			t.Error("expected entries channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for entries channel to close")
	}

	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWatcher_WatchAfterClose(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	w, err := eqlog.NewWatcher(eqlog.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	entries, errs, err := w.Watch(context.Background())
	if !errors.Is(err, eqlog.ErrWatcherClosed) {
		t.Errorf("Watch() error = %v, want %v", err, eqlog.ErrWatcherClosed)
	}
	if entries != nil || errs != nil {
		t.Error("expected nil channels")
	}
}

func TestWatcher_WatchCalledTwice(t *testing.T) {
	dir, _ := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	w, err := eqlog.NewWatcher(eqlog.WithLogDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if _, _, err := w.Watch(context.Background()); err != nil {
		t.Fatalf("first Watch() error = %v", err)
	}
	if _, _, err := w.Watch(context.Background()); !errors.Is(err, eqlog.ErrAlreadyWatching) {
		t.Errorf("second Watch() error = %v, want %v", err, eqlog.ErrAlreadyWatching)
	}
}

func TestWatcher_NoLogFiles(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir))
	if err != nil {
		// An empty directory may already be rejected during setup.
		if !errors.Is(err, eqlog.ErrLogDirNotFound) && !errors.Is(err, eqlog.ErrNoLogFiles) {
			t.Fatalf("Watch() error = %v", err)
		}
		return
	}
	select {
	case err := <-errs:
		var we *eqlog.WatchError
		if !errors.As(err, &we) || we.Op != eqlog.WatchOpFindLatest || !errors.Is(err, eqlog.ErrNoLogFiles) {
			t.Errorf("error = %v, want find_latest WatchError", err)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for error")
	}
}

func TestWatch_ConvenienceFunction(t *testing.T) {
	dir, logFile := newLogDir(t, "eqlog_Krizzy_P1999Green.txt")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, errs, err := eqlog.Watch(ctx, eqlog.WithLogDir(dir), eqlog.WithIncludeKinds(eqlog.KindLeftRaid))
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	appendLine(t, logFile, stamp(0)+"Krizzy has joined the raid.")
	appendLine(t, logFile, stamp(1)+"Krizzy has left the raid.")

	if e := nextEntry(t, ctx, entries, errs); e.Kind != eqlog.KindLeftRaid {
		t.Errorf("entry kind = %v, want left_raid", e.Kind)
	}
}

func TestWatch_ConvenienceFunction_InvalidLogDir(t *testing.T) {
	_, _, err := eqlog.Watch(context.Background(), eqlog.WithLogDir("/nonexistent/path"))
	if !errors.Is(err, eqlog.ErrLogDirNotFound) {
		t.Errorf("Watch() error = %v, want %v", err, eqlog.ErrLogDirNotFound)
	}
}
