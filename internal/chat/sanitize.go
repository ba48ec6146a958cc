// Package chat recognizes the chat-channel shape of EverQuest log bodies and the
// ":::"-delimited sub-messages raid leaders type into them.
package chat

import "strings"

// Delimiter is the canonical field separator of structured chat sub-messages.
const Delimiter = ":::"

func isDelim(c byte) bool { return c == ':' || c == ';' }

// HasDelimiterRun reports whether s contains two or more adjacent ':' or ';' characters.
func HasDelimiterRun(s string) bool {
	for i := 1; i < len(s); i++ {
		if isDelim(s[i]) && isDelim(s[i-1]) {
			return true
		}
	}
	return false
}

// Sanitize collapses every run of two or more ':'/';' characters into exactly ":::".
// Single delimiter characters and all other text are left untouched.
func Sanitize(s string) string {
	if !HasDelimiterRun(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); {
		if !isDelim(s[i]) {
			b.WriteByte(s[i])
			i++
			continue
		}
		j := i
		for j < len(s) && isDelim(s[j]) {
			j++
		}
		if j-i >= 2 {
			b.WriteString(Delimiter)
		} else {
			b.WriteByte(s[i])
		}
		i = j
	}
	return b.String()
}

// Fields splits a sanitized string on Delimiter, trimming each field.
func Fields(s string) []string {
	parts := strings.Split(s, Delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
