package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eqlog/eqlog-go/internal/config"
	"github.com/eqlog/eqlog-go/internal/store"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
)

func TestRunAuctions(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "eqlog_Leader_P1999Green.txt")
	lines := []string{
		"[Sun Mar 17 21:00:00 2024] You tell your raid, ':::Crystalline Spear::: BIDS OPEN'",
		"[Sun Mar 17 21:00:05 2024] Krizzy tells the raid, 'Crystalline Spear 10'",
		"[Sun Mar 17 21:00:30 2024] You tell your raid, ':::Crystalline Spear::: Krizzy 10 DKPSPENT'",
		"[Sun Mar 17 21:01:00 2024] You tell your raid, 'Ornate Gem OPEN'",
	}
	if err := os.WriteFile(logFile, []byte(strings.Join(lines, "\r\n")+"\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "eqlog.db")

	origSettings := settings
	origSince, origUntil := auctionsSince, auctionsUntil
	t.Cleanup(func() {
		settings = origSettings
		auctionsSince, auctionsUntil = origSince, origUntil
	})
	settings = &config.Config{Format: "jsonl", Database: dbPath}
	auctionsSince, auctionsUntil = "", ""
	stdout := captureStdout(t)

	if err := runAuctions(auctionsCmd, []string{logFile}); err != nil {
		t.Fatalf("runAuctions() error = %v", err)
	}

	var snap auction.Snapshot
	if err := json.Unmarshal([]byte(stdout()), &snap); err != nil {
		t.Fatalf("invalid snapshot output: %v", err)
	}
	if len(snap.Open) != 1 || snap.Open[0].ItemName != "Ornate Gem" {
		t.Errorf("open = %+v", snap.Open)
	}
	if len(snap.Completed) != 1 || snap.Completed[0].SpentCalls[0].Winner != "Krizzy" {
		t.Errorf("completed = %+v", snap.Completed)
	}
	if snap.Open[0].Auctioneer != "Leader" {
		t.Errorf("auctioneer = %q, want name from the log file", snap.Open[0].Auctioneer)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	sessions, err := st.Sessions(ctx)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Sessions() = %+v, %v", sessions, err)
	}
	done, err := st.Completed(ctx, sessions[0].ID)
	if err != nil || len(done) != 1 || done[0].SpentCalls[0].Amount != 10 {
		t.Errorf("stored completed = %+v, %v", done, err)
	}
}

func TestAuctionsLogFile_Explicit(t *testing.T) {
	got, err := auctionsLogFile([]string{"eqlog_Krizzy_P1999Green.txt"})
	if err != nil || got != "eqlog_Krizzy_P1999Green.txt" {
		t.Errorf("auctionsLogFile() = %q, %v", got, err)
	}
}
