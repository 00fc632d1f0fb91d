package store

import "testing"

func TestNextInSequence(t *testing.T) {
	cases := []struct {
		name string
		last string
		want int
	}{
		{name: "empty_starts_at_one", last: "", want: 1},
		{name: "first_increment", last: "OR-NMB2B-0001", want: 2},
		{name: "zero_padded", last: "OC-FPL-0041", want: 42},
		{name: "four_digit_rollover", last: "OR-FPL-9999", want: 10000},
		{name: "garbage_suffix", last: "OR-FPL-x1", want: 1},
		{name: "trailing_dash", last: "OR-FPL-", want: 1},
		{name: "no_dash", last: "ORFPL0001", want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextInSequence(tc.last); got != tc.want {
				t.Fatalf("nextInSequence(%q)=%d, want %d", tc.last, got, tc.want)
			}
		})
	}
}

func TestDraftingGroupPattern(t *testing.T) {
	valid := []string{"NMB2B", "FPL", "A1"}
	for _, g := range valid {
		if !draftingGroupPattern.MatchString(g) {
			t.Fatalf("group %q rejected, want accepted", g)
		}
	}
	invalid := []string{"", "nm b2b", "FPL-", "été"}
	for _, g := range invalid {
		if draftingGroupPattern.MatchString(g) {
			t.Fatalf("group %q accepted, want rejected", g)
		}
	}
}
