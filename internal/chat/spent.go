package chat

import (
	"strconv"
	"strings"
	"unicode"
)

// SpentMarker marks a DKP spent call.
const SpentMarker = "DKPSPENT"

// RotWinner is the winner recorded when a lot rots.
const RotWinner = "ROT"

// Winner is one name/amount pair of a spent call.
type Winner struct {
	Name   string
	Amount int
}

// Spent is a decoded ":::Item::: Winner N DKPSPENT" call.
type Spent struct {
	Item    string
	Winners []Winner
	Rot     bool
	Remove  bool
}

// ContainsSpentMarker reports whether s mentions DKPSPENT in any case.
func ContainsSpentMarker(s string) bool {
	return ContainsFold(s, SpentMarker)
}

// ParseSpent decodes a sanitized spent or rot call. Several winners may be
// separated by commas. A standalone REMOVE token flags a retraction.
func ParseSpent(s string) (Spent, bool) {
	fields := Fields(s)
	if len(fields) != 3 || fields[1] == "" {
		return Spent{}, false
	}
	sp := Spent{Item: fields[1]}

	var kept []string
	for _, tok := range strings.Fields(fields[2]) {
		switch strings.ToUpper(strings.Trim(tok, ".!,'")) {
		case SpentMarker:
			continue
		case "REMOVE":
			sp.Remove = true
			continue
		case RotWinner:
			sp.Rot = true
			continue
		}
		kept = append(kept, tok)
	}

	if sp.Rot && len(kept) == 0 {
		sp.Winners = []Winner{{Name: RotWinner}}
		return sp, true
	}
	if !ContainsSpentMarker(fields[2]) {
		return Spent{}, false
	}

	for _, seg := range strings.Split(strings.Join(kept, " "), ",") {
		w, ok := parseWinner(seg)
		if ok {
			sp.Winners = append(sp.Winners, w)
		}
	}
	if len(sp.Winners) == 0 {
		return Spent{}, false
	}
	return sp, true
}

func parseWinner(seg string) (Winner, bool) {
	var w Winner
	amount := -1
	for _, tok := range strings.Fields(seg) {
		tok = strings.Trim(tok, ".!'")
		if n, err := strconv.Atoi(tok); err == nil && amount < 0 {
			amount = n
			continue
		}
		if w.Name == "" && IsCharacterName(tok) {
			w.Name = NormalizeName(tok)
		}
	}
	if w.Name == "" || amount < 0 {
		return Winner{}, false
	}
	w.Amount = amount
	return w, true
}

// IsCharacterName reports whether tok can be an EverQuest character name.
func IsCharacterName(tok string) bool {
	if len(tok) < 3 {
		return false
	}
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// NormalizeName capitalizes a character name the way the game displays it.
func NormalizeName(name string) string {
	if name == "" || name == Self {
		return name
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// ContainsFold reports whether needle occurs in s ignoring ASCII case.
func ContainsFold(s, needle string) bool { return IndexFold(s, needle) >= 0 }

// IndexFold is a case-insensitive strings.Index for ASCII needles.
func IndexFold(s, needle string) int {
	n := len(needle)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], needle) {
			return i
		}
	}
	return -1
}
