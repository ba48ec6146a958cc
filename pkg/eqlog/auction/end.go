package auction

import (
	"strconv"
	"strings"
	"time"

	"github.com/eqlog/eqlog-go/internal/chat"
)

// ParseEnd recognizes closing calls in a chat message:
//
//	:::Runed Bolster Belt::: Krizzy rolled 301 WINS
//	:::Crystalline Spear::: Krizzy 10 DKPSPENT
//	:::Crystalline Spear::: Krizzy 10, Tuldor 8 DKPSPENT
//	:::Crystalline Spear::: Krizzy 10 DKPSPENT REMOVE
//	:::Crystalline Spear::: ROT
//
// A spent call with several winners yields one SpentCall per winner.
func ParseEnd(msg chat.Message, ts time.Time) []SpentCall {
	if !chat.HasDelimiterRun(msg.Text) {
		return nil
	}
	text := chat.Sanitize(msg.Text)

	base := SpentCall{
		Timestamp:  ts,
		Channel:    msg.Channel,
		Auctioneer: msg.Speaker,
	}

	if c, ok := parseRollWin(text, base); ok {
		return []SpentCall{c}
	}

	sp, ok := chat.ParseSpent(text)
	if !ok {
		return nil
	}
	base.ItemName = sp.Item
	base.Kind = KindItem
	base.IsRemove = sp.Remove

	if sp.Rot {
		base.Rot = true
		base.Winner = chat.RotWinner
		return []SpentCall{base}
	}

	calls := make([]SpentCall, 0, len(sp.Winners))
	for _, w := range sp.Winners {
		c := base
		c.Winner = w.Name
		c.Amount = w.Amount
		calls = append(calls, c)
	}
	return calls
}

// parseRollWin handles ":::Item::: Name rolled N WINS".
func parseRollWin(text string, base SpentCall) (SpentCall, bool) {
	fields := chat.Fields(text)
	if len(fields) != 3 || fields[0] != "" || fields[1] == "" {
		return SpentCall{}, false
	}
	tokens := strings.Fields(fields[2])
	if len(tokens) != 4 ||
		!strings.EqualFold(tokens[1], "rolled") ||
		!strings.EqualFold(strings.TrimRight(tokens[3], ".!"), "WINS") {
		return SpentCall{}, false
	}
	n, err := strconv.Atoi(tokens[2])
	if err != nil || !chat.IsCharacterName(tokens[0]) {
		return SpentCall{}, false
	}

	base.ItemName = fields[1]
	base.Kind = KindRoll
	base.Winner = chat.NormalizeName(tokens[0])
	base.Amount = n
	return base, true
}
