package parser

import (
	"strings"

	"github.com/eqlog/eqlog-go/internal/chat"
	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

const (
	attendanceMarker = "Raid Attendance Taken"
	killMarker       = "KILL"
	lootTerminator   = ".--"
	lootFragment     = "looted a"
	raidTerminator   = "raid."
)

// raid notes matched against an upper-cased, whitespace-free copy of the line.
var raidNotes = []struct {
	marker string
	kind   entry.Kind
}{
	{":::CRASHED:::", entry.Crashed},
	{":::AFKEND:::", entry.AfkEnd},
	{":::AFK:::", entry.AfkStart},
	{":::TRANSFER:::", entry.Transfer},
}

// primary runs the steady-state classifier. Only the first matching branch fires.
func primary(cfg *Config, st State, ln Line) (State, []entry.Entry) {
	body := ln.Body
	switch {
	case chat.HasDelimiterRun(body):
		return structured(cfg, st, ln, chat.Sanitize(body))
	case strings.HasSuffix(body, lootTerminator):
		if strings.Contains(body, lootFragment) {
			if e, ok := parseLoot(ln); ok {
				return st, []entry.Entry{e}
			}
		}
		return st, nil
	case strings.HasSuffix(body, raidTerminator):
		if e, ok := parseRaidMembership(ln); ok {
			return st, []entry.Entry{e}
		}
		return st, nil
	case chat.ContainsSpentMarker(body):
		return st, []entry.Entry{{
			Kind:      entry.PossibleDkpSpent,
			Timestamp: ln.Timestamp,
			RawLine:   body,
		}}
	}
	return st, nil
}

// structured handles lines carrying a ":::" delimiter run.
func structured(cfg *Config, st State, ln Line, body string) (State, []entry.Entry) {
	log := cfg.logger()

	if chat.ContainsSpentMarker(body) {
		ch, ok := cfg.Channels.ClassifyDkp(body)
		if !ok {
			return st, nil
		}
		msg, ok := chat.Parse(body)
		if !ok {
			return st, nil
		}
		sp, ok := chat.ParseSpent(msg.Text)
		if !ok {
			log.Debug("malformed spent call", "line", ln.Body)
			return st, nil
		}
		out := make([]entry.Entry, 0, len(sp.Winners))
		for _, w := range sp.Winners {
			out = append(out, entry.Entry{
				Kind:      entry.DkpSpent,
				Timestamp: ln.Timestamp,
				Channel:   ch,
				Character: w.Name,
				ItemName:  sp.Item,
				Amount:    w.Amount,
				RawLine:   ln.Body,
			})
		}
		return st, out
	}

	msg, ok := chat.Parse(body)
	if !ok || msg.Channel != entry.ChannelRaid {
		return st, nil
	}

	if strings.Contains(body, attendanceMarker) {
		e, ok := parseAttendance(ln, msg)
		if !ok {
			log.Debug("malformed attendance call", "line", ln.Body)
			return st, nil
		}
		if msg.IsSelf() {
			st = State{Mode: ModePopulationStart, WindowStart: ln.Timestamp}
		}
		return st, []entry.Entry{e}
	}

	stripped := strings.ToUpper(strings.Join(strings.Fields(msg.Text), ""))
	for _, note := range raidNotes {
		if strings.Contains(stripped, note.marker) {
			return st, []entry.Entry{{
				Kind:      note.kind,
				Timestamp: ln.Timestamp,
				Channel:   msg.Channel,
				Character: noteSubject(msg),
				RawLine:   ln.Body,
			}}
		}
	}

	return st, []entry.Entry{{
		Kind:      entry.Unknown,
		Timestamp: ln.Timestamp,
		Channel:   msg.Channel,
		Character: msg.Speaker,
		RawLine:   ln.Body,
	}}
}

// parseAttendance decodes ":::Raid Attendance Taken:::<Call>:::<Attendance|Kill>:::".
func parseAttendance(ln Line, msg chat.Message) (entry.Entry, bool) {
	fields := chat.Fields(msg.Text)
	at := -1
	for i, f := range fields {
		if strings.EqualFold(f, attendanceMarker) {
			at = i
			break
		}
	}
	if at < 0 || len(fields) < at+3 || fields[at+1] == "" {
		return entry.Entry{}, false
	}

	kind := entry.Attendance
	for _, f := range fields[at+2:] {
		if strings.EqualFold(f, killMarker) {
			kind = entry.Kill
		}
	}
	return entry.Entry{
		Kind:      kind,
		Timestamp: ln.Timestamp,
		Channel:   msg.Channel,
		Character: msg.Speaker,
		CallName:  fields[at+1],
		RawLine:   ln.Body,
	}, true
}

// noteSubject returns the character a raid note refers to: the first
// name-shaped field that is not the note keyword, or the speaker.
func noteSubject(msg chat.Message) string {
	for _, f := range chat.Fields(msg.Text) {
		up := strings.ToUpper(strings.Join(strings.Fields(f), ""))
		switch up {
		case "", "CRASHED", "AFK", "AFKEND", "TRANSFER":
			continue
		}
		tok := strings.Fields(f)[0]
		if chat.IsCharacterName(tok) {
			return chat.NormalizeName(tok)
		}
	}
	return msg.Speaker
}

// parseLoot decodes "--Soandso has looted a Crystalline Spear.--".
func parseLoot(ln Line) (entry.Entry, bool) {
	body := strings.TrimSuffix(strings.TrimPrefix(ln.Body, "--"), lootTerminator)
	idx := strings.Index(body, " has looted ")
	who := ""
	rest := ""
	switch {
	case idx > 0:
		who, rest = body[:idx], body[idx+len(" has looted "):]
	case strings.HasPrefix(body, "You have looted "):
		who, rest = chat.Self, strings.TrimPrefix(body, "You have looted ")
	default:
		return entry.Entry{}, false
	}

	switch {
	case strings.HasPrefix(rest, "an "):
		rest = rest[3:]
	case strings.HasPrefix(rest, "a "):
		rest = rest[2:]
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), " from a corpse")
	if who == "" || rest == "" || strings.ContainsRune(who, ' ') {
		return entry.Entry{}, false
	}
	return entry.Entry{
		Kind:      entry.CharacterLooted,
		Timestamp: ln.Timestamp,
		Character: who,
		ItemName:  rest,
		RawLine:   ln.Body,
	}, true
}

var membership = []struct {
	prefix, suffix string
	kind           entry.Kind
}{
	{"", " has joined the raid.", entry.JoinedRaid},
	{"", " has left the raid.", entry.LeftRaid},
	{"You remove ", " from the raid.", entry.LeftRaid},
	{"", " were removed from the raid.", entry.LeftRaid},
	{"", " have joined the raid.", entry.JoinedRaid},
}

// parseRaidMembership decodes raid join and leave notices.
func parseRaidMembership(ln Line) (entry.Entry, bool) {
	for _, m := range membership {
		if !strings.HasPrefix(ln.Body, m.prefix) || !strings.HasSuffix(ln.Body, m.suffix) {
			continue
		}
		who := strings.TrimSuffix(strings.TrimPrefix(ln.Body, m.prefix), m.suffix)
		if who == "" || strings.ContainsRune(who, ' ') {
			continue
		}
		return entry.Entry{
			Kind:      m.kind,
			Timestamp: ln.Timestamp,
			Character: who,
			RawLine:   ln.Body,
		}, true
	}
	return entry.Entry{}, false
}
