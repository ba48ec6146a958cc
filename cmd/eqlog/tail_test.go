package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/eqlog/eqlog-go/internal/config"
)

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"json", false},
		{"xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := ValidFormats[tt.format]
			if got != tt.valid {
				t.Errorf("ValidFormats[%q] = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

// withTailState sets the tail globals for one test and restores them after.
func withTailState(t *testing.T, include, exclude []string) {
	t.Helper()
	origSettings := settings
	origInclude, origExclude := tailIncludeKinds, tailExcludeKinds
	origLast, origSince := replayLast, replaySince
	origAuctions, origPipe := tailAuctions, tailZealPipe
	t.Cleanup(func() {
		settings = origSettings
		tailIncludeKinds, tailExcludeKinds = origInclude, origExclude
		replayLast, replaySince = origLast, origSince
		tailAuctions, tailZealPipe = origAuctions, origPipe
	})

	settings = &config.Config{Format: "jsonl"}
	tailIncludeKinds, tailExcludeKinds = include, exclude
	replayLast, replaySince = -1, ""
	tailAuctions, tailZealPipe = false, ""
}

func TestRunTailInvalidKind(t *testing.T) {
	withTailState(t, []string{"invalid_kind"}, nil)

	err := runTail(tailCmd, nil)
	if err == nil {
		t.Fatal("expected error for invalid entry kind, got nil")
	}
	if !strings.Contains(err.Error(), "unknown entry kind") {
		t.Errorf("expected 'unknown entry kind' error, got: %v", err)
	}
}

func TestRunTailOverlapKinds(t *testing.T) {
	withTailState(t, []string{"kill"}, []string{"kill"})

	err := runTail(tailCmd, nil)
	if err == nil {
		t.Fatal("expected error for overlapping entry kinds, got nil")
	}
	if !strings.Contains(err.Error(), "cannot be both included and excluded") {
		t.Errorf("expected overlap error, got: %v", err)
	}
}

func TestRunTailReplayConflict(t *testing.T) {
	withTailState(t, nil, nil)
	replayLast = 10
	replaySince = "2024-03-17T20:00:00Z"

	err := runTail(tailCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "cannot be used together") {
		t.Errorf("expected replay conflict error, got: %v", err)
	}
}

func TestRunTailInvalidReplaySince(t *testing.T) {
	withTailState(t, nil, nil)
	replaySince = "yesterday"

	err := runTail(tailCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid --replay-since format") {
		t.Errorf("expected replay-since format error, got: %v", err)
	}
}

func TestRunTailZealPipeNeedsAuctions(t *testing.T) {
	withTailState(t, nil, nil)
	tailZealPipe = "capture.json"

	err := runTail(tailCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "--zeal-pipe requires --auctions") {
		t.Errorf("expected zeal-pipe error, got: %v", err)
	}
}

func TestRunTailZealPipeMissing(t *testing.T) {
	withTailState(t, nil, nil)
	settings.LogDir = t.TempDir()
	tailAuctions = true
	tailZealPipe = filepath.Join(t.TempDir(), "missing")

	err := runTail(tailCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "opening zeal pipe") {
		t.Errorf("expected zeal pipe open error, got: %v", err)
	}
}
