package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/auction"
	"github.com/eqlog/eqlog-go/pkg/eqlog/zeal"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

var (
	styleTime    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleJoin    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleLeave   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // orange
	styleSpent   = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleCall    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true) // cyan
	styleNote    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleHeading = lipgloss.NewStyle().Bold(true).Underline(true)
)

// resolveFormat picks the output format: the configured one if set,
// pretty on a terminal, jsonl otherwise.
func resolveFormat(configured string) (string, error) {
	if configured == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			return "pretty", nil
		}
		return "jsonl", nil
	}
	if !ValidFormats[configured] {
		return "", fmt.Errorf("invalid format %q: must be one of: jsonl, pretty", configured)
	}
	return configured, nil
}

// OutputEntry writes e in the given format.
func OutputEntry(format string, e eqlog.Entry, w io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(e, w)
	case "pretty":
		return OutputPretty(e, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes v as a single JSON line.
func OutputJSON(v any, w io.Writer) error {
	return json.NewEncoder(w).Encode(v)
}

// OutputPretty writes e as one human-readable line.
func OutputPretty(e eqlog.Entry, w io.Writer) error {
	ts := styleTime.Render(e.Timestamp.Format("15:04:05"))

	var msg string
	switch e.Kind {
	case eqlog.KindAttendance:
		msg = styleCall.Render("# Attendance: " + e.CallName)
	case eqlog.KindKill:
		msg = styleCall.Render("# Kill: " + e.CallName)
	case eqlog.KindDkpSpent:
		msg = styleSpent.Render(fmt.Sprintf("$ %s spent %d DKP on %s", e.Character, e.Amount, e.ItemName))
	case eqlog.KindPossibleDkpSpent:
		msg = styleNote.Render("? possible DKPSPENT: " + e.RawLine)
	case eqlog.KindCharacterLooted:
		msg = fmt.Sprintf("* %s looted %s", e.Character, e.ItemName)
	case eqlog.KindJoinedRaid:
		msg = styleJoin.Render(fmt.Sprintf("+ %s joined the raid", e.Character))
	case eqlog.KindLeftRaid:
		msg = styleLeave.Render(fmt.Sprintf("- %s left the raid", e.Character))
	case eqlog.KindCrashed:
		msg = styleLeave.Render(fmt.Sprintf("! %s crashed", e.Character))
	case eqlog.KindAfkStart:
		msg = styleNote.Render(fmt.Sprintf("~ %s is AFK", e.Character))
	case eqlog.KindAfkEnd:
		msg = styleNote.Render(fmt.Sprintf("~ %s is back", e.Character))
	case eqlog.KindTransfer:
		msg = fmt.Sprintf("> transfer to %s", e.Character)
	case eqlog.KindCharacterName:
		msg = fmt.Sprintf("  %s", e.Character)
	case eqlog.KindWhoZoneName:
		msg = styleNote.Render("  in " + e.Zone)
	default:
		msg = styleNote.Render(fmt.Sprintf("[%s] %s", e.Kind, e.RawLine))
	}

	_, err := fmt.Fprintf(w, "%s %s\n", ts, msg)
	return err
}

// OutputAuctionEvent writes one tracker event.
func OutputAuctionEvent(format string, ev auction.Event, w io.Writer) error {
	if format == "jsonl" {
		return OutputJSON(ev, w)
	}

	a := ev.Auction
	var msg string
	switch ev.Type {
	case auction.EventOpened:
		msg = styleCall.Render(fmt.Sprintf("[%d] %s open (x%d, %s)", a.ID, a.ItemName, a.Quantity, a.Auctioneer))
	case auction.EventBid:
		msg = fmt.Sprintf("[%d] %s bids %d for %s", a.ID, ev.Bid.Bidder, ev.Bid.Amount, ev.Bid.Beneficiary)
		if ev.Bid.Rank != "" {
			msg += styleNote.Render(" [" + ev.Bid.Rank + "]")
		}
		if ev.Bid.RosterChecked && !ev.Bid.InRaid {
			msg += styleLeave.Render(" (not in raid)")
		}
		if ev.Bid.NotOnDkpServer {
			msg += styleLeave.Render(" (not on DKP)")
		}
	case auction.EventStatus:
		msg = styleNote.Render(fmt.Sprintf("[%d] %s %s", a.ID, a.ItemName, a.StatusText(time.Now())))
	case auction.EventSpent:
		msg = styleSpent.Render(fmt.Sprintf("[%d] %s -> %s %d", a.ID, a.ItemName, ev.Spent.Winner, ev.Spent.Amount))
	case auction.EventClosed:
		msg = styleNote.Render(fmt.Sprintf("[%d] %s closed", a.ID, a.ItemName))
	case auction.EventRemoved:
		msg = styleLeave.Render(fmt.Sprintf("[%d] %s removed %s", a.ID, a.ItemName, ev.Spent.Winner))
	default:
		msg = styleNote.Render(fmt.Sprintf("[%d] %s %s", a.ID, a.ItemName, ev.Type))
	}
	_, err := fmt.Fprintf(w, "%s %s\n", styleTime.Render(a.Timestamp.Format("15:04:05")), msg)
	return err
}

// OutputSnapshot writes the tracker state: a JSON object, or open lots with
// their high bids followed by completed lots.
func OutputSnapshot(format string, tr *auction.Tracker, now time.Time, w io.Writer) error {
	if format == "jsonl" {
		return OutputJSON(tr.Snapshot(), w)
	}

	var b strings.Builder
	b.WriteString(styleHeading.Render("Open auctions") + "\n")
	open := tr.Open()
	if len(open) == 0 {
		b.WriteString("  none\n")
	}
	for _, a := range open {
		fmt.Fprintf(&b, "  [%d] %s x%d (%s, %s)\n", a.ID, a.ItemName, a.Quantity, a.Auctioneer, a.StatusText(now))
		for _, bid := range tr.HighBids(a.ID) {
			fmt.Fprintf(&b, "      high: %s %d\n", bid.Beneficiary, bid.Amount)
		}
	}

	b.WriteString(styleHeading.Render("Completed auctions") + "\n")
	done := tr.Completed()
	if len(done) == 0 {
		b.WriteString("  none\n")
	}
	for _, c := range done {
		fmt.Fprintf(&b, "  [%d] %s\n", c.Auction.ID, c.ItemName)
		for _, call := range c.SpentCalls {
			if call.Rot {
				b.WriteString("      rot\n")
				continue
			}
			fmt.Fprintf(&b, "      %s %d\n", call.Winner, call.Amount)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// OutputRoster writes a raid roster snapshot.
func OutputRoster(format string, roster []zeal.RaidCharacter, w io.Writer) error {
	if format == "jsonl" {
		return OutputJSON(roster, w)
	}

	var b strings.Builder
	b.WriteString(styleHeading.Render(fmt.Sprintf("Raid (%d)", len(roster))) + "\n")
	for _, c := range roster {
		fmt.Fprintf(&b, "  %2d %-15s %3d %-12s %s\n", c.Group, c.Name, c.Level, c.Class, c.Rank)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
