package eqlog

import "github.com/eqlog/eqlog-go/pkg/eqlog/entry"

// Re-export entry types for convenience.
// Users can import just "github.com/eqlog/eqlog-go/pkg/eqlog"
// and use eqlog.Entry, eqlog.KindDkpSpent, etc.

// Entry represents a classified EverQuest log line.
type Entry = entry.Entry

// Kind represents the classification of a log entry.
type Kind = entry.Kind

// Channel is the chat channel of a chat-derived entry.
type Channel = entry.Channel

// Kind constants.
const (
	KindUnknown          = entry.Unknown
	KindAttendance       = entry.Attendance
	KindKill             = entry.Kill
	KindDkpSpent         = entry.DkpSpent
	KindPossibleDkpSpent = entry.PossibleDkpSpent
	KindCharacterLooted  = entry.CharacterLooted
	KindJoinedRaid       = entry.JoinedRaid
	KindLeftRaid         = entry.LeftRaid
	KindCrashed          = entry.Crashed
	KindAfkStart         = entry.AfkStart
	KindAfkEnd           = entry.AfkEnd
	KindTransfer         = entry.Transfer
	KindCharacterName    = entry.CharacterName
	KindWhoZoneName      = entry.WhoZoneName
)

// Channel constants accepted by WithChannels and WithParseChannels.
const (
	ChannelRaid  = entry.ChannelRaid
	ChannelGuild = entry.ChannelGuild
)
