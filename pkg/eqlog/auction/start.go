package auction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eqlog/eqlog-go/internal/chat"
)

var (
	parenMultiplier = regexp.MustCompile(`^(.*?)\s*\(\s*[xX]?(\d+)\s*\)$`)
	xMultiplier     = regexp.MustCompile(`^(.*?)\s+[xX]\s*(\d+)$`)
)

// minNameLen is the shortest plausible roll subject.
const minNameLen = 3

// ParseStart recognizes auction openings in a chat message:
//
//	Crystalline Spear, Runed Belt x2 OPEN
//	Crystalline Spear | Runed Belt (2) BIDS OPEN
//	:::Crystalline Spear::: BIDS OPEN
//	Runed Bolster Belt 333 ROLL
//
// Status pings never open a lot, even when they end in OPEN.
// Returned auctions have no ID; the Tracker assigns one when it opens them.
func ParseStart(msg chat.Message, ts time.Time) []LiveAuction {
	text := strings.TrimSpace(msg.Text)
	if text == "" || IsStatusPing(text) {
		return nil
	}

	base := LiveAuction{
		Auctioneer: msg.Speaker,
		Channel:    msg.Channel,
		Timestamp:  ts,
	}

	if chat.HasDelimiterRun(text) {
		return parseStructuredStart(chat.Sanitize(text), base)
	}

	upper := strings.ToUpper(text)
	switch {
	case strings.HasSuffix(upper, " OPEN"):
		list := strings.TrimSpace(text[:len(text)-len(" OPEN")])
		if strings.HasSuffix(strings.ToUpper(list), " BIDS") {
			list = strings.TrimSpace(list[:len(list)-len(" BIDS")])
		}
		return parseItemList(list, base)
	case strings.HasSuffix(upper, " ROLL"):
		if a, ok := parseRollStart(text[:len(text)-len(" ROLL")], base); ok {
			return []LiveAuction{a}
		}
	}
	return nil
}

// parseStructuredStart handles ":::Item::: BIDS OPEN".
func parseStructuredStart(text string, base LiveAuction) []LiveAuction {
	fields := chat.Fields(text)
	if len(fields) != 3 || fields[1] == "" {
		return nil
	}
	if !strings.Contains(strings.ToUpper(fields[2]), "BIDS OPEN") {
		return nil
	}
	return parseItemList(fields[1], base)
}

// parseItemList splits a '|' or ',' separated list and merges duplicates: a
// repeated name gets the larger of its repeat count and its largest explicit
// multiplier.
func parseItemList(list string, base LiveAuction) []LiveAuction {
	type lot struct {
		name     string
		count    int
		explicit int
	}
	var lots []*lot
	byName := make(map[string]*lot)

	for _, raw := range strings.FieldsFunc(list, func(r rune) bool { return r == '|' || r == ',' }) {
		name, n := splitMultiplier(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		l, ok := byName[key]
		if !ok {
			l = &lot{name: name}
			byName[key] = l
			lots = append(lots, l)
		}
		l.count++
		l.explicit = max(l.explicit, n)
	}

	out := make([]LiveAuction, 0, len(lots))
	for _, l := range lots {
		a := base
		a.Kind = KindItem
		a.ItemName = l.name
		a.Quantity = max(l.count, l.explicit)
		out = append(out, a)
	}
	return out
}

// splitMultiplier strips a "(N)" or "xN" suffix, trying the parenthesized
// form first. The multiplier defaults to 1.
func splitMultiplier(s string) (string, int) {
	for _, re := range []*regexp.Regexp{parenMultiplier, xMultiplier} {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n < 1 {
			continue
		}
		return strings.TrimSpace(m[1]), n
	}
	return s, 1
}

// parseRollStart handles "<subject> [xN] <ceiling>" (the trailing ROLL removed).
// The rightmost number is the ceiling and must end the text.
func parseRollStart(text string, base LiveAuction) (LiveAuction, bool) {
	text = strings.TrimRight(text, " ")
	end := len(text)
	start := end
	for start > 0 && text[start-1] >= '0' && text[start-1] <= '9' {
		start--
	}
	if start == end || start == 0 || text[start-1] != ' ' {
		return LiveAuction{}, false
	}
	ceiling, err := strconv.Atoi(text[start:end])
	if err != nil || ceiling < 1 {
		return LiveAuction{}, false
	}

	name, n := splitMultiplier(strings.TrimSpace(text[:start]))
	if len(name) < minNameLen {
		return LiveAuction{}, false
	}

	a := base
	a.Kind = KindRoll
	a.ItemName = name
	a.Quantity = n
	a.RollCeiling = ceiling
	return a, true
}
