package entry

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Kind
		wantOK bool
	}{
		{"attendance exact", "attendance", Attendance, true},
		{"kill exact", "kill", Kill, true},
		{"dkp_spent exact", "dkp_spent", DkpSpent, true},

		// Case-insensitive
		{"uppercase JOINED_RAID", "JOINED_RAID", JoinedRaid, true},
		{"mixed case Afk_Start", "Afk_Start", AfkStart, true},

		// Whitespace handling
		{"leading space", " left_raid", LeftRaid, true},
		{"trailing space", "who_zone_name ", WhoZoneName, true},
		{"tab", "\tcrashed\t", Crashed, true},

		// Invalid kinds
		{"empty string", "", "", false},
		{"only spaces", "   ", "", false},
		{"internal space", "joined raid", "", false},
		{"typo", "atendance", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseKind(tt.input)
			if ok != tt.wantOK {
				t.Errorf("ParseKind(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	for _, name := range KindNames() {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseKind(name)
			if !ok {
				t.Errorf("ParseKind(%q) returned false, expected true", name)
			}
			if string(got) != name {
				t.Errorf("ParseKind(%q) = %q, expected %q", name, got, name)
			}
		})
	}
}

func TestKindNames_SortedNoDuplicates(t *testing.T) {
	names := KindNames()
	if len(names) != 14 {
		t.Errorf("KindNames() returned %d names, want 14", len(names))
	}
	seen := make(map[string]bool)
	for i, name := range names {
		if seen[name] {
			t.Errorf("KindNames() contains duplicate: %q", name)
		}
		seen[name] = true
		if i > 0 && names[i-1] > name {
			t.Errorf("KindNames() not sorted: %q > %q", names[i-1], name)
		}
	}
}

func TestChannel_IsDkpEligible(t *testing.T) {
	eligible := map[Channel]bool{
		ChannelRaid:    true,
		ChannelGuild:   true,
		ChannelNone:    false,
		ChannelSay:     false,
		ChannelOOC:     false,
		ChannelAuction: false,
		ChannelTell:    false,
	}
	for ch, want := range eligible {
		if got := ch.IsDkpEligible(); got != want {
			t.Errorf("Channel(%q).IsDkpEligible() = %v, want %v", ch, got, want)
		}
	}
}
