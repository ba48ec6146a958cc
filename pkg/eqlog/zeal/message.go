package zeal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MessageType is the "type" discriminator of a pipe message.
type MessageType int

const (
	TypeGauge     MessageType = 1
	TypeLabel     MessageType = 2
	TypeTelemetry MessageType = 3
	TypeRaid      MessageType = 5
	TypeOther     MessageType = 6
)

func (t MessageType) String() string {
	switch t {
	case TypeGauge:
		return "gauge"
	case TypeLabel:
		return "label"
	case TypeTelemetry:
		return "telemetry"
	case TypeRaid:
		return "raid"
	case TypeOther:
		return "other"
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Message is one pipe object with its data payload unescaped.
type Message struct {
	Type      MessageType
	Character string
	Data      string
}

// RaidCharacter is one roster record of a raid message.
type RaidCharacter struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Level int    `json:"level"`
	Group int    `json:"group"`
	Rank  string `json:"rank"`
}

// Position is a world location.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Telemetry is the character record of a telemetry message.
type Telemetry struct {
	Character string   `json:"-"`
	ZoneID    int      `json:"zone"`
	Position  Position `json:"location"`
	Heading   float64  `json:"heading"`
}

// Decode extracts type, character and data from one framed object by
// scanning for the keys rather than parsing the whole document.
//
// Only raid and telemetry messages need a data payload. A payload whose
// closing bracket cannot be found is reported as ErrMissingData.
func Decode(raw string) (Message, error) {
	var m Message

	typ, ok := numberField(raw, "type")
	if !ok {
		return Message{}, fmt.Errorf("%w: no type field", ErrMalformed)
	}
	m.Type = MessageType(typ)
	m.Character, _ = stringField(raw, "character")

	if m.Type != TypeRaid && m.Type != TypeTelemetry {
		return m, nil
	}

	data, err := dataField(raw)
	if err != nil {
		return Message{}, err
	}
	m.Data = data
	return m, nil
}

// Roster decodes the data payload of a raid message.
func (m Message) Roster() ([]RaidCharacter, error) {
	var rs []RaidCharacter
	if err := json.Unmarshal([]byte(m.Data), &rs); err != nil {
		return nil, fmt.Errorf("%w: raid data: %v", ErrMalformed, err)
	}
	return rs, nil
}

// Telemetry decodes the data payload of a telemetry message.
func (m Message) Telemetry() (Telemetry, error) {
	var t Telemetry
	if err := json.Unmarshal([]byte(m.Data), &t); err != nil {
		return Telemetry{}, fmt.Errorf("%w: telemetry data: %v", ErrMalformed, err)
	}
	t.Character = m.Character
	return t, nil
}

// valueStart returns the index just past `"key":` and any spaces.
func valueStart(raw, key string) (int, bool) {
	i := strings.Index(raw, `"`+key+`"`)
	if i < 0 {
		return 0, false
	}
	i += len(key) + 2
	for i < len(raw) && raw[i] == ' ' {
		i++
	}
	if i >= len(raw) || raw[i] != ':' {
		return 0, false
	}
	i++
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\n' || raw[i] == '\r') {
		i++
	}
	return i, i < len(raw)
}

func numberField(raw, key string) (int, bool) {
	i, ok := valueStart(raw, key)
	if !ok {
		return 0, false
	}
	j := i
	if j < len(raw) && raw[j] == '-' {
		j++
	}
	for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
		j++
	}
	n, err := strconv.Atoi(raw[i:j])
	return n, err == nil
}

func stringField(raw, key string) (string, bool) {
	i, ok := valueStart(raw, key)
	if !ok || raw[i] != '"' {
		return "", false
	}
	i++
	for j := i; j < len(raw); j++ {
		switch raw[j] {
		case '\\':
			j++
		case '"':
			return unescape(raw[i:j]), true
		}
	}
	return "", false
}

// dataField locates the "data" payload and returns it unescaped. The payload
// is the first '{' or '[' after the key up to the bracket that balances it.
func dataField(raw string) (string, error) {
	i, ok := valueStart(raw, "data")
	if !ok {
		return "", fmt.Errorf("%w: no data field", ErrMissingData)
	}
	start := strings.IndexAny(raw[i:], "{[")
	if start < 0 {
		return "", fmt.Errorf("%w: no opening bracket", ErrMissingData)
	}
	start += i

	open, end := raw[start], byte('}')
	if open == '[' {
		end = ']'
	}
	depth := 0
	for j := start; j < len(raw); j++ {
		switch raw[j] {
		case open:
			depth++
		case end:
			depth--
			if depth == 0 {
				return unescape(raw[start : j+1]), nil
			}
		}
	}
	return "", fmt.Errorf("%w: no closing brace", ErrMissingData)
}

// unescape removes one level of backslash escaping.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
