package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
	"github.com/eqlog/eqlog-go/pkg/eqlog/zeal"
)

var updateGolden = flag.Bool("update-golden", false, "update golden files")

var fixedTime = time.Date(2024, 3, 17, 21, 0, 0, 0, time.UTC)

func TestOutputJSON(t *testing.T) {
	e := eqlog.Entry{
		Kind:      eqlog.KindDkpSpent,
		Timestamp: fixedTime,
		Character: "Krizzy",
		ItemName:  "Crystalline Spear",
		Amount:    10,
	}

	var buf bytes.Buffer
	if err := OutputJSON(e, &buf); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}

	var decoded eqlog.Entry
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("OutputJSON() produced invalid JSON: %v", err)
	}
	if decoded.Character != "Krizzy" || decoded.Amount != 10 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestOutputPretty(t *testing.T) {
	tests := []struct {
		name     string
		entry    eqlog.Entry
		contains string
	}{
		{"joined", eqlog.Entry{Kind: eqlog.KindJoinedRaid, Character: "Krizzy"}, "+ Krizzy joined the raid"},
		{"left", eqlog.Entry{Kind: eqlog.KindLeftRaid, Character: "Krizzy"}, "- Krizzy left the raid"},
		{"spent", eqlog.Entry{Kind: eqlog.KindDkpSpent, Character: "Krizzy", Amount: 10, ItemName: "Runed Belt"}, "$ Krizzy spent 10 DKP on Runed Belt"},
		{"kill", eqlog.Entry{Kind: eqlog.KindKill, CallName: "Vulak"}, "# Kill: Vulak"},
		{"loot", eqlog.Entry{Kind: eqlog.KindCharacterLooted, Character: "Bob", ItemName: "Ornate Gem"}, "* Bob looted Ornate Gem"},
		{"zone", eqlog.Entry{Kind: eqlog.KindWhoZoneName, Zone: "Plane of Sky"}, "in Plane of Sky"},
		{"unknown", eqlog.Entry{Kind: eqlog.KindUnknown, RawLine: ":::Spear::: BIDS OPEN"}, "[unknown] :::Spear::: BIDS OPEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.Timestamp = fixedTime
			var buf bytes.Buffer
			if err := OutputPretty(tt.entry, &buf); err != nil {
				t.Fatalf("OutputPretty() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("OutputPretty() = %q, want to contain %q", buf.String(), tt.contains)
			}
			if !strings.Contains(buf.String(), "21:00:00") {
				t.Errorf("OutputPretty() = %q, missing time", buf.String())
			}
		})
	}
}

func TestOutputEntry(t *testing.T) {
	e := eqlog.Entry{Kind: eqlog.KindJoinedRaid, Timestamp: fixedTime, Character: "Krizzy"}

	var buf bytes.Buffer
	if err := OutputEntry("jsonl", e, &buf); err != nil || !strings.Contains(buf.String(), `"character":"Krizzy"`) {
		t.Errorf("jsonl output = %q, %v", buf.String(), err)
	}
	buf.Reset()
	if err := OutputEntry("pretty", e, &buf); err != nil || !strings.Contains(buf.String(), "+ Krizzy joined") {
		t.Errorf("pretty output = %q, %v", buf.String(), err)
	}
	if err := OutputEntry("xml", e, &buf); err == nil {
		t.Error("OutputEntry() expected error for unknown format")
	}
}

func TestResolveFormat(t *testing.T) {
	for _, f := range []string{"jsonl", "pretty"} {
		if got, err := resolveFormat(f); err != nil || got != f {
			t.Errorf("resolveFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := resolveFormat("json"); err == nil {
		t.Error("resolveFormat(json) expected error")
	}
	// Under go test stdout is not a terminal.
	if got, _ := resolveFormat(""); got != "jsonl" && got != "pretty" {
		t.Errorf("resolveFormat(\"\") = %q", got)
	}
}

func TestOutputAuctionEvent(t *testing.T) {
	a := auction.LiveAuction{ID: 2, ItemName: "Runed Belt", Quantity: 1, Auctioneer: "Leader", Timestamp: fixedTime}
	tests := []struct {
		name     string
		ev       auction.Event
		contains string
	}{
		{"opened", auction.Event{Type: auction.EventOpened, Auction: a}, "[2] Runed Belt open (x1, Leader)"},
		{"bid", auction.Event{Type: auction.EventBid, Auction: a, Bid: &auction.LiveBid{Bidder: "Krizzy", Beneficiary: "Alt", Amount: 7, NotOnDkpServer: true}}, "Krizzy bids 7 for Alt"},
		{"not in raid", auction.Event{Type: auction.EventBid, Auction: a, Bid: &auction.LiveBid{Bidder: "Bob", Beneficiary: "Bob", Amount: 3, RosterChecked: true}}, "Bob bids 3 for Bob (not in raid)"},
		{"rank", auction.Event{Type: auction.EventBid, Auction: a, Bid: &auction.LiveBid{Bidder: "Bob", Beneficiary: "Bob", Amount: 4, RosterChecked: true, InRaid: true, Rank: "Group Leader"}}, "Bob bids 4 for Bob [Group Leader]"},
		{"spent", auction.Event{Type: auction.EventSpent, Auction: a, Spent: &auction.SpentCall{Winner: "Krizzy", Amount: 7}}, "Runed Belt -> Krizzy 7"},
		{"closed", auction.Event{Type: auction.EventClosed, Auction: a}, "Runed Belt closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := OutputAuctionEvent("pretty", tt.ev, &buf); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output = %q, want to contain %q", buf.String(), tt.contains)
			}
		})
	}

	var buf bytes.Buffer
	if err := OutputAuctionEvent("jsonl", tests[0].ev, &buf); err != nil || !strings.Contains(buf.String(), `"type":"opened"`) {
		t.Errorf("jsonl output = %q, %v", buf.String(), err)
	}
}

func TestOutputSnapshot(t *testing.T) {
	tr := auction.NewTracker(auction.WithSelf("Leader"))
	tr.Process(fixedTime, "You tell your raid, ':::Crystalline Spear::: BIDS OPEN'")
	tr.Process(fixedTime.Add(time.Second), "Krizzy tells the raid, 'Crystalline Spear 10'")
	tr.Process(fixedTime.Add(2*time.Second), "Bob tells the raid, 'Crystalline Spear 12'")
	tr.Process(fixedTime.Add(3*time.Second), "You tell your raid, 'Ornate Gem OPEN'")
	tr.Process(fixedTime.Add(4*time.Second), "You tell your raid, ':::Ornate Gem::: ROT'")

	var buf bytes.Buffer
	if err := OutputSnapshot("pretty", tr, fixedTime, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Open auctions", "Crystalline Spear x1", "high: Bob 12", "Completed auctions", "Ornate Gem", "rot"} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := OutputSnapshot("jsonl", tr, fixedTime, &buf); err != nil {
		t.Fatal(err)
	}
	var snap auction.Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON snapshot: %v", err)
	}
	if snap.Session != tr.Session().String() || len(snap.Open) != 1 || len(snap.Completed) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestOutputRoster(t *testing.T) {
	roster := []zeal.RaidCharacter{
		{Name: "Krizzy", Class: "Warlock", Level: 60, Group: 1, Rank: "Leader"},
		{Name: "Bob", Class: "Cleric", Level: 58, Group: 2},
	}
	var buf bytes.Buffer
	if err := OutputRoster("pretty", roster, &buf); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "Raid (2)") || !strings.Contains(out, "Krizzy") || !strings.Contains(out, "Cleric") {
		t.Errorf("roster output = %q", out)
	}
}

// TestOutputEntry_Golden tests output formats using golden files.
// Run with -update-golden to update the golden files.
func TestOutputEntry_Golden(t *testing.T) {
	tests := []struct {
		name   string
		format string
		entry  eqlog.Entry
	}{
		{
			name:   "jsonl_joined_raid",
			format: "jsonl",
			entry: eqlog.Entry{
				Kind:      eqlog.KindJoinedRaid,
				Timestamp: fixedTime,
				Character: "Krizzy",
				RawLine:   "Krizzy has joined the raid.",
			},
		},
		{
			name:   "jsonl_dkp_spent",
			format: "jsonl",
			entry: eqlog.Entry{
				Kind:      eqlog.KindDkpSpent,
				Timestamp: fixedTime,
				Channel:   eqlog.ChannelRaid,
				Character: "Krizzy",
				ItemName:  "Crystalline Spear",
				Amount:    10,
			},
		},
	}

	// Support both flag and env var for updating golden files
	update := *updateGolden || os.Getenv("UPDATE_GOLDEN") != ""

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := OutputEntry(tt.format, tt.entry, &buf); err != nil {
				t.Fatalf("OutputEntry() error = %v", err)
			}

			golden := filepath.Join("testdata", "golden", tt.name+".golden")

			if update {
				if err := os.MkdirAll(filepath.Dir(golden), 0755); err != nil {
					t.Fatalf("failed to create golden dir: %v", err)
				}
				if err := os.WriteFile(golden, buf.Bytes(), 0644); err != nil {
					t.Fatalf("failed to write golden file: %v", err)
				}
				t.Logf("updated golden file: %s", golden)
				return
			}

			expected, err := os.ReadFile(golden)
			if err != nil {
				t.Fatalf("failed to read golden file %s: %v\nRun with -update-golden to create it", golden, err)
			}

			// Normalize line endings for cross-platform compatibility
			got := bytes.ReplaceAll(buf.Bytes(), []byte("\r\n"), []byte("\n"))
			want := bytes.ReplaceAll(expected, []byte("\r\n"), []byte("\n"))

			if !bytes.Equal(got, want) {
				t.Errorf("output mismatch for %s:\ngot:\n%s\nwant:\n%s", golden, got, want)
			}
		})
	}
}
