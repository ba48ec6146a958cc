// Package entry defines the core Entry type for EverQuest log parsing.
//
// This package is separated from the main eqlog package to avoid import cycles
// between pkg/eqlog and internal/parser.
package entry

import (
	"sort"
	"strings"
	"time"
)

// Kind represents the classification of a log entry.
type Kind string

const (
	// Unknown is an entry whose shape was recognized but not classified further.
	Unknown Kind = "unknown"

	// Attendance is a raid attendance call.
	Attendance Kind = "attendance"

	// Kill is a boss kill attendance call.
	Kill Kind = "kill"

	// DkpSpent is a confirmed ":::Item::: Winner N DKPSPENT" call on an eligible channel.
	DkpSpent Kind = "dkp_spent"

	// PossibleDkpSpent is a line mentioning DKPSPENT without the structured delimiters.
	PossibleDkpSpent Kind = "possible_dkp_spent"

	// CharacterLooted indicates a character looted an item.
	CharacterLooted Kind = "character_looted"

	// JoinedRaid indicates a character joined the raid.
	JoinedRaid Kind = "joined_raid"

	// LeftRaid indicates a character left (or was removed from) the raid.
	LeftRaid Kind = "left_raid"

	// Crashed is a raid note that a character crashed.
	Crashed Kind = "crashed"

	// AfkStart is a raid note that a character went AFK.
	AfkStart Kind = "afk_start"

	// AfkEnd is a raid note that a character returned from AFK.
	AfkEnd Kind = "afk_end"

	// Transfer is a raid note that a character was swapped for another.
	Transfer Kind = "transfer"

	// CharacterName is one roster line of a population listing.
	CharacterName Kind = "character_name"

	// WhoZoneName is the "N players in <zone>" line ending a population listing.
	WhoZoneName Kind = "who_zone_name"
)

// allKinds is the canonical list of all entry kinds.
var allKinds = []Kind{
	Unknown, Attendance, Kill, DkpSpent, PossibleDkpSpent, CharacterLooted,
	JoinedRaid, LeftRaid, Crashed, AfkStart, AfkEnd, Transfer, CharacterName, WhoZoneName,
}

// KindNames returns a sorted list of all valid kind names.
func KindNames() []string {
	names := make([]string, len(allKinds))
	for i, k := range allKinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return names
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(allKinds))
	for _, k := range allKinds {
		m[string(k)] = k
	}
	return m
}()

// ParseKind converts a string to Kind if valid.
// It is case-insensitive and trims leading/trailing whitespace.
func ParseKind(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	k, ok := kindByName[name]
	return k, ok
}

// Channel is the chat channel a line was sent on.
type Channel string

const (
	ChannelNone    Channel = ""
	ChannelRaid    Channel = "raid"
	ChannelGuild   Channel = "guild"
	ChannelSay     Channel = "say"
	ChannelShout   Channel = "shout"
	ChannelOOC     Channel = "ooc"
	ChannelAuction Channel = "auction"
	ChannelTell    Channel = "tell"
)

// IsDkpEligible reports whether DKP bookkeeping accepts calls on c.
func (c Channel) IsDkpEligible() bool {
	return c == ChannelRaid || c == ChannelGuild
}

// Entry represents a classified EverQuest log line.
type Entry struct {
	// Kind is the entry classification.
	Kind Kind `json:"kind"`

	// Timestamp is when the line was written (local time from the log, no zone).
	Timestamp time.Time `json:"timestamp"`

	// Channel is set for chat-derived entries.
	Channel Channel `json:"channel,omitempty"`

	// Character is the subject character (looter, joiner, roster member, winner).
	Character string `json:"character,omitempty"`

	// ItemName is set for loot and spent entries.
	ItemName string `json:"item_name,omitempty"`

	// CallName is the attendance or kill call name.
	CallName string `json:"call_name,omitempty"`

	// Zone is the zone named by a population listing terminator.
	Zone string `json:"zone,omitempty"`

	// Amount is the DKP amount on spent entries.
	Amount int `json:"amount,omitempty"`

	// RawLine is the log line body without the timestamp prefix.
	RawLine string `json:"raw_line,omitempty"`
}
