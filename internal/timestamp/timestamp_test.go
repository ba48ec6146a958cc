package timestamp

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestExtractIn(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "raid tell",
			line:   "[Sun Mar 17 21:39:28 2024] You tell your raid, ':::Raid Attendance Taken:::First Call:::Attendance:::'",
			want:   time.Date(2024, 3, 17, 21, 39, 28, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "prefix only",
			line:   "[Thu Feb 29 00:00:00 2024] ",
			want:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{"every month june", "[Sat Jun 01 01:02:03 2024] x", time.Date(2024, 6, 1, 1, 2, 3, 0, time.UTC), true},
		{"every month july", "[Mon Jul 01 01:02:03 2024] x", time.Date(2024, 7, 1, 1, 2, 3, 0, time.UTC), true},
		{"every month august", "[Thu Aug 01 01:02:03 2024] x", time.Date(2024, 8, 1, 1, 2, 3, 0, time.UTC), true},
		{"every month may", "[Wed May 01 01:02:03 2024] x", time.Date(2024, 5, 1, 1, 2, 3, 0, time.UTC), true},
		{"too short", "[Sun Mar 17 21:39:28 2024]", time.Time{}, false},
		{"empty", "", time.Time{}, false},
		{"no bracket", "Sun Mar 17 21:39:28 2024] hello", time.Time{}, false},
		{"bad month", "[Sun Mxr 17 21:39:28 2024] hello", time.Time{}, false},
		{"feb 30", "[Sun Feb 30 21:39:28 2024] hello", time.Time{}, false},
		{"feb 29 non leap", "[Sun Feb 29 21:39:28 2023] hello", time.Time{}, false},
		{"hour 24", "[Sun Mar 17 24:39:28 2024] hello", time.Time{}, false},
		{"minute 60", "[Sun Mar 17 21:60:28 2024] hello", time.Time{}, false},
		{"day zero", "[Sun Mar 00 21:39:28 2024] hello", time.Time{}, false},
		{"non digit", "[Sun Mar 1x 21:39:28 2024] hello", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractIn(tt.line, time.UTC)
			if ok != tt.wantOK {
				t.Fatalf("ExtractIn(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ExtractIn(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestBody(t *testing.T) {
	if got := Body("[Sun Mar 17 21:39:28 2024] Soandso has joined the raid."); got != "Soandso has joined the raid." {
		t.Errorf("Body() = %q", got)
	}
	if got := Body("short"); got != "" {
		t.Errorf("Body(short) = %q, want empty", got)
	}
}

func TestExtract_MatchesTimeParse(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	first := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	last := time.Date(2099, 12, 31, 23, 59, 59, 0, time.UTC).Unix()

	properties.Property("extracted timestamp equals time.Parse of the same prefix", prop.ForAll(
		func(sec int64) bool {
			ts := time.Unix(sec, 0).UTC()
			line := "[" + ts.Format(Layout) + "] body"
			want, err := time.ParseInLocation(Layout, ts.Format(Layout), time.UTC)
			if err != nil {
				return false
			}
			got, ok := ExtractIn(line, time.UTC)
			return ok && got.Equal(want)
		},
		gen.Int64Range(first, last),
	))

	properties.Property("lines shorter than the prefix never match", prop.ForAll(
		func(n int) bool {
			line := "[Sun Mar 17 21:39:28 2024] "[:n]
			_, ok := ExtractIn(line, time.UTC)
			return !ok
		},
		gen.IntRange(0, PrefixLen-1),
	))

	properties.TestingRun(t)
}

func BenchmarkExtract(b *testing.B) {
	line := "[Sun Mar 17 21:39:28 2024] Soandso tells the raid, 'Crystalline Spear Krizzy 10 DKP'"
	for b.Loop() {
		Extract(line)
	}
}

func BenchmarkTimeParse(b *testing.B) {
	line := "[Sun Mar 17 21:39:28 2024] Soandso tells the raid, 'Crystalline Spear Krizzy 10 DKP'"
	for b.Loop() {
		_, _ = time.Parse(Layout, strings.TrimPrefix(line[:PrefixLen-2], "["))
	}
}
