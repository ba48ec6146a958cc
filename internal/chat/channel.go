package chat

import (
	"strings"

	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// Self is the speaker name EverQuest uses for the log owner.
const Self = "You"

// phrase is one literal that identifies the channel of a chat line.
type phrase struct {
	text    string
	channel entry.Channel
	self    bool // the phrase starts the line and the speaker is the log owner
}

// phrases are matched in order; the first literal found wins.
var phrases = []phrase{
	{"You tell your raid, ", entry.ChannelRaid, true},
	{" tells the raid, ", entry.ChannelRaid, false},
	{"You say to your guild, ", entry.ChannelGuild, true},
	{" tells the guild, ", entry.ChannelGuild, false},
	{"You say out of character, ", entry.ChannelOOC, true},
	{" says out of character, ", entry.ChannelOOC, false},
	{"You auction, ", entry.ChannelAuction, true},
	{" auctions, ", entry.ChannelAuction, false},
	{"You shout, ", entry.ChannelShout, true},
	{" shouts, ", entry.ChannelShout, false},
	{" tells you, ", entry.ChannelTell, false},
	{"You told ", entry.ChannelTell, true},
	{"You say, ", entry.ChannelSay, true},
	{" says, ", entry.ChannelSay, false},
}

// Message is a chat line split into its parts.
type Message struct {
	Channel entry.Channel
	Speaker string
	Text    string
}

// IsSelf reports whether the log owner sent the message.
func (m Message) IsSelf() bool { return m.Speaker == Self }

// Classify determines the channel of a log body (timestamp prefix removed).
// It returns false when no channel literal matches.
func Classify(body string) (entry.Channel, bool) {
	p, _, ok := match(body)
	if !ok {
		return entry.ChannelNone, false
	}
	return p.channel, true
}

// Parse splits a log body into speaker, channel and quoted text.
func Parse(body string) (Message, bool) {
	p, idx, ok := match(body)
	if !ok {
		return Message{}, false
	}

	speaker := Self
	if !p.self {
		speaker = strings.TrimSpace(body[:idx])
		if speaker == "" || strings.ContainsRune(speaker, ' ') {
			return Message{}, false
		}
	}

	rest := body[idx+len(p.text):]
	q := strings.IndexByte(rest, '\'')
	if q < 0 {
		return Message{}, false
	}
	text := rest[q+1:]
	text = strings.TrimSuffix(text, "'")

	return Message{Channel: p.channel, Speaker: speaker, Text: text}, true
}

func match(body string) (phrase, int, bool) {
	for _, p := range phrases {
		if p.self {
			if strings.HasPrefix(body, p.text) {
				return p, 0, true
			}
			continue
		}
		if idx := strings.Index(body, p.text); idx > 0 {
			return p, idx, true
		}
	}
	return phrase{}, 0, false
}

// ChannelSet is the set of channels enabled for DKP bookkeeping.
type ChannelSet map[entry.Channel]bool

// DefaultDkpChannels enables raid and guild.
func DefaultDkpChannels() ChannelSet {
	return ChannelSet{entry.ChannelRaid: true, entry.ChannelGuild: true}
}

// NewChannelSet builds a set from channel names, keeping only DKP-eligible channels.
func NewChannelSet(names ...string) ChannelSet {
	set := make(ChannelSet, len(names))
	for _, n := range names {
		ch := entry.Channel(strings.ToLower(strings.TrimSpace(n)))
		if ch.IsDkpEligible() {
			set[ch] = true
		}
	}
	return set
}

// Allows reports whether ch is enabled. A nil set enables raid and guild.
func (s ChannelSet) Allows(ch entry.Channel) bool {
	if s == nil {
		return ch.IsDkpEligible()
	}
	return s[ch]
}

// ClassifyDkp returns the channel of body when it is raid or guild and enabled.
func (s ChannelSet) ClassifyDkp(body string) (entry.Channel, bool) {
	ch, ok := Classify(body)
	if !ok || !ch.IsDkpEligible() || !s.Allows(ch) {
		return entry.ChannelNone, false
	}
	return ch, true
}
