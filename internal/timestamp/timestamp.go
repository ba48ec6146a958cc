// Package timestamp extracts the bracketed timestamp prefix of EverQuest log lines.
//
// Every line of a log file passes through Extract, so it avoids time.Parse and
// decodes the fixed-width prefix with direct character arithmetic instead.
package timestamp

import "time"

// Layout is the time.Parse layout equivalent of the bracketed prefix contents.
const Layout = "Mon Jan 02 15:04:05 2006"

// PrefixLen is the length of "[Www Mon dd HH:mm:ss yyyy] " including the trailing space.
const PrefixLen = 27

// Field offsets within the prefix.
const (
	offMonth  = 5
	offDay    = 9
	offHour   = 12
	offMinute = 15
	offSecond = 18
	offYear   = 23 // last two digits of the four-digit year
)

// Extract parses the timestamp at the start of line in the local time zone.
// It returns false when the line is too short or any field is out of range.
func Extract(line string) (time.Time, bool) {
	return ExtractIn(line, time.Local)
}

// ExtractIn is Extract with an explicit location.
func ExtractIn(line string, loc *time.Location) (time.Time, bool) {
	if len(line) < PrefixLen || line[0] != '[' || line[PrefixLen-2] != ']' {
		return time.Time{}, false
	}

	month := parseMonth(line[offMonth], line[offMonth+1], line[offMonth+2])
	if month == 0 {
		return time.Time{}, false
	}
	day, ok := pair(line, offDay)
	if !ok {
		return time.Time{}, false
	}
	hour, ok := pair(line, offHour)
	if !ok || hour > 23 {
		return time.Time{}, false
	}
	minute, ok := pair(line, offMinute)
	if !ok || minute > 59 {
		return time.Time{}, false
	}
	second, ok := pair(line, offSecond)
	if !ok || second > 59 {
		return time.Time{}, false
	}
	yy, ok := pair(line, offYear)
	if !ok {
		return time.Time{}, false
	}
	year := 2000 + yy

	if day < 1 || day > daysIn(month, year) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, hour, minute, second, 0, loc), true
}

// Body returns the text after the timestamp prefix, or "" when line has none.
func Body(line string) string {
	if len(line) < PrefixLen {
		return ""
	}
	return line[PrefixLen:]
}

// pair decodes two ASCII digits at line[i:i+2].
func pair(line string, i int) (int, bool) {
	a, b := line[i]-'0', line[i+1]-'0'
	if a > 9 || b > 9 {
		return 0, false
	}
	return int(a)*10 + int(b), true
}

// parseMonth resolves a three-letter month abbreviation from its
// first and disambiguating characters.
func parseMonth(c0, c1, c2 byte) time.Month {
	switch c0 {
	case 'J':
		if c1 == 'a' {
			return time.January
		}
		if c2 == 'n' {
			return time.June
		}
		if c2 == 'l' {
			return time.July
		}
	case 'F':
		return time.February
	case 'M':
		if c2 == 'r' {
			return time.March
		}
		if c2 == 'y' {
			return time.May
		}
	case 'A':
		if c1 == 'p' {
			return time.April
		}
		if c1 == 'u' {
			return time.August
		}
	case 'S':
		return time.September
	case 'O':
		return time.October
	case 'N':
		return time.November
	case 'D':
		return time.December
	}
	return 0
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	}
	return 31
}
