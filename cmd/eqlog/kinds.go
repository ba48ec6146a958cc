package main

import (
	"fmt"
	"strings"

	"github.com/eqlog/eqlog-go/pkg/eqlog"
	"github.com/eqlog/eqlog-go/pkg/eqlog/entry"
)

// ValidKindNames returns a sorted list of valid entry kind names.
// Delegates to entry.KindNames() as the single source of truth.
func ValidKindNames() []string {
	return entry.KindNames()
}

// NormalizeKinds converts CLI string values to a slice of eqlog.Kind.
// It handles case-insensitivity, whitespace trimming, and duplicate removal.
func NormalizeKinds(values []string) ([]eqlog.Kind, error) {
	if len(values) == 0 {
		return nil, nil
	}

	result := make([]eqlog.Kind, 0, len(values))
	seen := make(map[eqlog.Kind]struct{})

	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			return nil, fmt.Errorf("empty entry kind provided (input: %q); valid kinds: %s", raw, strings.Join(ValidKindNames(), ", "))
		}

		k, ok := entry.ParseKind(raw)
		if !ok {
			return nil, fmt.Errorf("unknown entry kind %q (valid: %s)", raw, strings.Join(ValidKindNames(), ", "))
		}

		if _, dup := seen[k]; dup {
			continue // ignore duplicates silently
		}
		seen[k] = struct{}{}
		result = append(result, k)
	}

	return result, nil
}

// RejectOverlap returns an error if any kind is in both includes and excludes.
func RejectOverlap(includes, excludes []eqlog.Kind) error {
	ex := make(map[eqlog.Kind]struct{}, len(excludes))
	for _, k := range excludes {
		ex[k] = struct{}{}
	}
	for _, k := range includes {
		if _, ok := ex[k]; ok {
			return fmt.Errorf("entry kind %q cannot be both included and excluded", k)
		}
	}
	return nil
}
