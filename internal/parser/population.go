package parser

import (
	"strconv"
	"strings"

	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

const populationBanner = "Players on EverQuest:"

// populationStart waits for the /who banner and its dashes line, forwarding
// everything else to the primary classifier until the window expires.
func populationStart(cfg *Config, st State, ln Line) (State, []entry.Entry) {
	if ln.Timestamp.Sub(st.WindowStart) > cfg.window() {
		cfg.logger().Debug("population listing window expired", "window_start", st.WindowStart)
		return primary(cfg, State{Mode: ModePrimary}, ln)
	}

	body := strings.TrimSpace(ln.Body)
	if strings.HasPrefix(body, populationBanner) {
		st.SawBanner = true
		return st, nil
	}
	if st.SawBanner && isDashes(body) {
		return State{Mode: ModePopulationBody, WindowStart: st.WindowStart}, nil
	}

	next, out := primary(cfg, st, ln)
	if next.Mode == ModePrimary {
		next = st
	}
	return next, out
}

// populationBody emits one entry per roster line and returns to primary on
// the "N players in <zone>" terminator.
func populationBody(cfg *Config, st State, ln Line) (State, []entry.Entry) {
	body := strings.TrimSpace(ln.Body)

	if zone, ok := parseZoneTerminator(body); ok {
		return State{Mode: ModePrimary}, []entry.Entry{{
			Kind:      entry.WhoZoneName,
			Timestamp: ln.Timestamp,
			Zone:      zone,
			RawLine:   ln.Body,
		}}
	}

	if hasGuildTag(body, cfg.GuildTag) {
		if name, ok := parseRosterName(body); ok {
			return st, []entry.Entry{{
				Kind:      entry.CharacterName,
				Timestamp: ln.Timestamp,
				Character: name,
				RawLine:   ln.Body,
			}}
		}
		cfg.logger().Debug("unreadable roster line", "line", ln.Body)
		return st, nil
	}

	if isDashes(body) {
		return st, nil
	}

	next, out := primary(cfg, st, ln)
	if next.Mode == ModePrimary {
		next = st
	}
	return next, out
}

func isDashes(s string) bool {
	if len(s) < 3 {
		return false
	}
	return strings.Trim(s, "-") == ""
}

func hasGuildTag(body, tag string) bool {
	if tag != "" {
		return strings.Contains(body, tag)
	}
	open := strings.IndexByte(body, '<')
	return open >= 0 && strings.IndexByte(body[open:], '>') > 1
}

// parseRosterName reads the character name following the "[level class]" or
// "[ANONYMOUS]" block of a /who line.
func parseRosterName(body string) (string, bool) {
	end := strings.IndexByte(body, ']')
	if end < 0 {
		return "", false
	}
	fields := strings.Fields(body[end+1:])
	if len(fields) == 0 {
		return "", false
	}
	name := fields[0]
	for _, r := range name {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", false
		}
	}
	return name, true
}

// parseZoneTerminator decodes "There are 42 players in Plane of Sky." and
// "There is 1 player in Plane of Sky.".
func parseZoneTerminator(body string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(body, "There are "):
		rest = strings.TrimPrefix(body, "There are ")
	case strings.HasPrefix(body, "There is "):
		rest = strings.TrimPrefix(body, "There is ")
	default:
		return "", false
	}

	count, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return "", false
	}
	if _, err := strconv.Atoi(count); err != nil {
		return "", false
	}
	for _, noun := range []string{"players in ", "player in "} {
		if zone, found := strings.CutPrefix(rest, noun); found {
			zone = strings.TrimSuffix(zone, ".")
			return zone, zone != ""
		}
	}
	return "", false
}
