package auction

import (
	"strconv"
	"strings"
	"time"

	"github.com/eqlog/eqlog-go/internal/chat"
)

// MagicDieWindow is how long a "Magic Die is rolled by" announcement waits
// for its result line.
const MagicDieWindow = 2 * time.Second

const (
	magicDieRoller = "**A Magic Die is rolled by "
	magicDieResult = "**It could have been any number from "
	// magicDieTokens is the token count of the result text after magicDieResult:
	// "0 to 333, but this time it turned up a 123."
	magicDieTokens = 11
)

var statusPings = []string{"60s", "30s", "10s", "COMPLETED"}

// IsStatusPing reports whether text is an auctioneer countdown or completion
// notice rather than a bid.
func IsStatusPing(text string) bool {
	for _, p := range statusPings {
		if chat.ContainsFold(text, p) {
			return true
		}
	}
	return false
}

// FindOpen returns the index of the first auction in open whose item name
// occurs in text, ignoring case. Roll auctions are skipped unless rolls is set.
func FindOpen(open []LiveAuction, text string, rolls bool) int {
	for i, a := range open {
		if a.IsRoll() && !rolls {
			continue
		}
		if chat.ContainsFold(text, a.ItemName) {
			return i
		}
	}
	return -1
}

// BidAnalyzer recognizes bids on open auctions. It carries only the pending
// Magic Die roller between lines.
type BidAnalyzer struct {
	roller   string
	rolledAt time.Time
}

// Analyze parses a chat message as a DKP bid on one of the open item
// auctions. bidder is the resolved name of the speaker.
func (b *BidAnalyzer) Analyze(msg chat.Message, bidder string, ts time.Time, open []LiveAuction) (LiveBid, bool) {
	text := msg.Text
	if IsStatusPing(text) || chat.ContainsSpentMarker(text) {
		return LiveBid{}, false
	}
	i := FindOpen(open, text, false)
	if i < 0 {
		return LiveBid{}, false
	}
	a := open[i]

	at := chat.IndexFold(text, a.ItemName)
	rest := text[:at] + " " + text[at+len(a.ItemName):]
	amount, ok := firstNumber(rest)
	if !ok || amount <= 0 {
		return LiveBid{}, false
	}

	beneficiary := beneficiaryName(text[at+len(a.ItemName):])
	if beneficiary == "" {
		beneficiary = bidder
	}

	return LiveBid{
		Timestamp:   ts,
		Channel:     msg.Channel,
		AuctionID:   a.ID,
		Kind:        KindItem,
		Bidder:      bidder,
		Beneficiary: beneficiary,
		ItemName:    a.ItemName,
		Amount:      amount,
	}, true
}

// AnalyzeRoll follows the two-line Magic Die protocol on a non-chat body.
// The result is attributed to the first open roll auction with the same
// ceiling.
func (b *BidAnalyzer) AnalyzeRoll(body string, ts time.Time, open []LiveAuction) (LiveBid, bool) {
	if name, ok := strings.CutPrefix(body, magicDieRoller); ok {
		b.roller = chat.NormalizeName(strings.TrimSpace(strings.TrimSuffix(name, ".")))
		b.rolledAt = ts
		return LiveBid{}, false
	}

	rest, ok := strings.CutPrefix(body, magicDieResult)
	if !ok {
		return LiveBid{}, false
	}
	roller := b.roller
	stale := ts.Sub(b.rolledAt) > MagicDieWindow || ts.Before(b.rolledAt)
	b.roller = ""
	if roller == "" || stale {
		return LiveBid{}, false
	}

	tokens := strings.Split(rest, " ")
	if len(tokens) != magicDieTokens {
		return LiveBid{}, false
	}
	ceiling, err := strconv.Atoi(strings.TrimSuffix(tokens[2], ","))
	if err != nil {
		return LiveBid{}, false
	}
	result, err := strconv.Atoi(strings.TrimSuffix(tokens[10], "."))
	if err != nil {
		return LiveBid{}, false
	}

	for _, a := range open {
		if !a.IsRoll() || a.RollCeiling != ceiling {
			continue
		}
		return LiveBid{
			Timestamp:   ts,
			AuctionID:   a.ID,
			Kind:        KindRoll,
			Bidder:      roller,
			Beneficiary: roller,
			ItemName:    a.ItemName,
			Amount:      result,
		}, true
	}
	return LiveBid{}, false
}

// Pending returns the roller awaiting a Magic Die result, if any.
func (b *BidAnalyzer) Pending() (string, time.Time, bool) {
	return b.roller, b.rolledAt, b.roller != ""
}

func firstNumber(s string) (int, bool) {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	return n, err == nil
}

var bidNoise = map[string]bool{"DKP": true, "MAIN": true, "ALT": true, "BID": true, "FOR": true}

// beneficiaryName picks the first name-shaped token after the item name,
// ignoring amounts, DKP/MAIN/ALT tags and punctuation.
func beneficiaryName(s string) string {
	for _, tok := range strings.FieldsFunc(s, isBidSeparator) {
		if bidNoise[strings.ToUpper(tok)] {
			continue
		}
		if chat.IsCharacterName(tok) {
			return chat.NormalizeName(tok)
		}
	}
	return ""
}

func isBidSeparator(r rune) bool {
	switch r {
	case ' ', ',', '.', '!', '?', '-', ':', ';', '(', ')', '[', ']', '/', '\'', '"':
		return true
	}
	return r >= '0' && r <= '9'
}
