package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eqlog/eqlog-go/internal/config"
	"github.com/eqlog/eqlog-go/internal/store"
	"github.com/eqlog/eqlog-go/pkg/eqlog"
)

func TestParseTimeRange(t *testing.T) {
	tests := []struct {
		name      string
		since     string
		until     string
		wantSince time.Time
		wantUntil time.Time
		wantErr   bool
	}{
		{
			name: "empty strings",
		},
		{
			name:      "valid since only",
			since:     "2024-03-17T20:00:00Z",
			wantSince: time.Date(2024, 3, 17, 20, 0, 0, 0, time.UTC),
		},
		{
			name:      "valid until only",
			until:     "2024-03-18T00:00:00Z",
			wantUntil: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "valid range",
			since:     "2024-03-17T20:00:00Z",
			until:     "2024-03-18T00:00:00Z",
			wantSince: time.Date(2024, 3, 17, 20, 0, 0, 0, time.UTC),
			wantUntil: time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "invalid since format",
			since:   "2024-03-17",
			wantErr: true,
		},
		{
			name:    "invalid until format",
			until:   "not-a-date",
			wantErr: true,
		},
		{
			name:    "since after until",
			since:   "2024-03-18T00:00:00Z",
			until:   "2024-03-17T20:00:00Z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSince, gotUntil, err := parseTimeRange(tt.since, tt.until)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeRange() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !gotSince.Equal(tt.wantSince) {
				t.Errorf("since = %v, want %v", gotSince, tt.wantSince)
			}
			if !gotUntil.Equal(tt.wantUntil) {
				t.Errorf("until = %v, want %v", gotUntil, tt.wantUntil)
			}
		})
	}
}

// withParseState sets the parse globals for one test and restores them after.
func withParseState(t *testing.T, cfg *config.Config, include, exclude []string) {
	t.Helper()
	origSettings := settings
	origInclude := parseIncludeKinds
	origExclude := parseExcludeKinds
	origSince, origUntil := parseSince, parseUntil
	t.Cleanup(func() {
		settings = origSettings
		parseIncludeKinds = origInclude
		parseExcludeKinds = origExclude
		parseSince, parseUntil = origSince, origUntil
	})

	settings = cfg
	parseIncludeKinds = include
	parseExcludeKinds = exclude
	parseSince, parseUntil = "", ""
}

// captureStdout redirects os.Stdout to a file for the rest of the test.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	if err != nil {
		t.Fatal(err)
	}
	orig := os.Stdout
	os.Stdout = f
	t.Cleanup(func() {
		os.Stdout = orig
		_ = f.Close()
	})
	return func() string {
		data, err := os.ReadFile(f.Name())
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}
}

func TestRunParseInvalidKind(t *testing.T) {
	withParseState(t, &config.Config{Format: "jsonl"}, []string{"invalid_kind"}, nil)

	err := runParse(parseCmd, nil)
	if err == nil {
		t.Fatal("expected error for invalid entry kind, got nil")
	}
	if !strings.Contains(err.Error(), "unknown entry kind") {
		t.Errorf("expected 'unknown entry kind' error, got: %v", err)
	}
}

func TestRunParseOverlapKinds(t *testing.T) {
	withParseState(t, &config.Config{Format: "jsonl"}, []string{"joined_raid"}, []string{"JOINED_RAID"})

	err := runParse(parseCmd, nil)
	if err == nil {
		t.Fatal("expected error for overlapping entry kinds, got nil")
	}
	if !strings.Contains(err.Error(), "cannot be both included and excluded") {
		t.Errorf("expected overlap error, got: %v", err)
	}
}

func TestRunParseInvalidFormat(t *testing.T) {
	withParseState(t, &config.Config{Format: "xml"}, nil, nil)

	if err := runParse(parseCmd, nil); err == nil || !strings.Contains(err.Error(), "invalid format") {
		t.Errorf("expected invalid format error, got: %v", err)
	}
}

func TestRunParseFileToDatabase(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "eqlog_Leader_P1999Green.txt")
	lines := []string{
		"[Sun Mar 17 21:00:00 2024] Krizzy has joined the raid.",
		"[Sun Mar 17 21:00:01 2024] --Krizzy has looted a Crystalline Spear.--",
		"[Sun Mar 17 21:00:02 2024] You tell your raid, ':::Crystalline Spear::: Krizzy 10 DKPSPENT'",
	}
	if err := os.WriteFile(logFile, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "eqlog.db")

	withParseState(t, &config.Config{Format: "jsonl", Database: dbPath}, []string{"dkp_spent", "joined_raid"}, nil)
	stdout := captureStdout(t)

	if err := runParse(parseCmd, []string{logFile}); err != nil {
		t.Fatalf("runParse() error = %v", err)
	}

	out := stdout()
	if got := strings.Count(out, "\n"); got != 2 {
		t.Errorf("got %d output lines, want 2:\n%s", got, out)
	}
	if !strings.Contains(out, `"kind":"dkp_spent"`) || strings.Contains(out, "character_looted") {
		t.Errorf("unexpected output:\n%s", out)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	sessions, err := st.Sessions(ctx)
	if err != nil || len(sessions) != 1 || sessions[0].Source != "parse" {
		t.Fatalf("Sessions() = %+v, %v", sessions, err)
	}
	entries, err := st.Entries(ctx, store.EntryQuery{Session: sessions[0].ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Kind != eqlog.KindJoinedRaid || entries[1].Amount != 10 {
		t.Errorf("stored entries = %+v", entries)
	}
}
