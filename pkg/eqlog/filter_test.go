package eqlog

import "testing"

func TestCompiledFilter_Allows(t *testing.T) {
	tests := []struct {
		name    string
		include []Kind
		exclude []Kind
		kind    Kind
		want    bool
	}{
		{
			name: "nil filter allows all",
			kind: KindDkpSpent,
			want: true,
		},
		{
			name:    "include only specified kinds",
			include: []Kind{KindDkpSpent},
			kind:    KindDkpSpent,
			want:    true,
		},
		{
			name:    "include rejects non-specified kinds",
			include: []Kind{KindDkpSpent},
			kind:    KindJoinedRaid,
			want:    false,
		},
		{
			name:    "exclude specified kinds",
			exclude: []Kind{KindCharacterName},
			kind:    KindCharacterName,
			want:    false,
		},
		{
			name:    "exclude allows non-specified kinds",
			exclude: []Kind{KindCharacterName},
			kind:    KindKill,
			want:    true,
		},
		{
			name:    "exclude takes precedence over include",
			include: []Kind{KindAttendance, KindKill},
			exclude: []Kind{KindKill},
			kind:    KindKill,
			want:    false,
		},
		{
			name:    "include and exclude - allowed kind",
			include: []Kind{KindAttendance, KindKill},
			exclude: []Kind{KindKill},
			kind:    KindAttendance,
			want:    true,
		},
		{
			name:    "empty include allows all",
			include: []Kind{},
			kind:    KindLeftRaid,
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCompiledFilter(tt.include, tt.exclude)
			if got := f.Allows(tt.kind); got != tt.want {
				t.Errorf("Allows(%v) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNewCompiledFilter_NilForEmpty(t *testing.T) {
	if f := newCompiledFilter(nil, nil); f != nil {
		t.Error("newCompiledFilter(nil, nil) should return nil")
	}
	if f := newCompiledFilter([]Kind{}, []Kind{}); f != nil {
		t.Error("newCompiledFilter([], []) should return nil")
	}
}

func TestCompiledFilter_IncludeThenExclude(t *testing.T) {
	var f *compiledFilter
	f = f.withInclude([]Kind{KindAttendance, KindKill})
	f = f.withExclude([]Kind{KindKill})

	if !f.Allows(KindAttendance) {
		t.Error("attendance should pass")
	}
	if f.Allows(KindKill) || f.Allows(KindLeftRaid) {
		t.Error("kill and left_raid should be filtered")
	}
}
