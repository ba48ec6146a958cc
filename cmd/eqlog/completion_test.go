package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompleteKinds(t *testing.T) {
	tests := []struct {
		name       string
		toComplete string
		flagVals   []string
		want       []string
	}{
		{
			name:       "prefix a",
			toComplete: "a",
			want:       []string{"afk_end", "afk_start", "attendance"},
		},
		{
			name:       "prefix dkp",
			toComplete: "dkp",
			want:       []string{"dkp_spent"},
		},
		{
			name:       "comma prefix preserves already typed values",
			toComplete: "kill,dkp",
			want:       []string{"kill,dkp_spent"},
		},
		{
			name:       "excludes already typed values",
			toComplete: "afk_end,af",
			want:       []string{"afk_end,afk_start"},
		},
		{
			name:       "excludes values from flag",
			toComplete: "af",
			flagVals:   []string{"afk_start"},
			want:       []string{"afk_end"},
		},
		{
			name:       "case insensitive matching",
			toComplete: "CHAR",
			want:       []string{"character_looted", "character_name"},
		},
		{
			name:       "trims whitespace",
			toComplete: "  ki  ",
			want:       []string{"kill"},
		},
		{
			name:       "no match returns empty",
			toComplete: "xyz",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().StringSlice("include-kinds", nil, "")
			if tt.flagVals != nil {
				if err := cmd.Flags().Set("include-kinds", strings.Join(tt.flagVals, ",")); err != nil {
					t.Fatalf("failed to set flag: %v", err)
				}
			}

			got, dir := completeKinds("include-kinds")(cmd, nil, tt.toComplete)

			expectedDir := cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
			if dir != expectedDir {
				t.Errorf("directive = %v, want %v", dir, expectedDir)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompleteChannels(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().StringSlice("channels", nil, "")

	got, _ := completeChannels("channels")(cmd, nil, "")
	if !reflect.DeepEqual(got, []string{"guild", "raid"}) {
		t.Errorf("candidates = %v", got)
	}
	got, _ = completeChannels("channels")(cmd, nil, "raid,")
	if !reflect.DeepEqual(got, []string{"raid,guild"}) {
		t.Errorf("candidates after raid = %v", got)
	}
}
