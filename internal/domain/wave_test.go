package domain

import "testing"

func TestWaveAtOrAfter(t *testing.T) {
	cases := []struct {
		name   string
		wave   Wave
		cutoff Wave
		want   bool
	}{
		{name: "same_year_later_quarter", wave: Wave{Year: 2027, Quarter: 2}, cutoff: Wave{Year: 2027, Quarter: 1}, want: true},
		{name: "same_wave", wave: Wave{Year: 2027, Quarter: 2}, cutoff: Wave{Year: 2027, Quarter: 2}, want: true},
		{name: "same_year_earlier_quarter", wave: Wave{Year: 2027, Quarter: 2}, cutoff: Wave{Year: 2027, Quarter: 3}, want: false},
		{name: "later_year_earlier_quarter", wave: Wave{Year: 2028, Quarter: 1}, cutoff: Wave{Year: 2027, Quarter: 4}, want: true},
		{name: "earlier_year", wave: Wave{Year: 2026, Quarter: 4}, cutoff: Wave{Year: 2027, Quarter: 1}, want: false},
		{name: "missing_quarter_compares_as_zero", wave: Wave{Year: 2027}, cutoff: Wave{Year: 2027, Quarter: 1}, want: false},
		{name: "cutoff_missing_quarter", wave: Wave{Year: 2027, Quarter: 1}, cutoff: Wave{Year: 2027}, want: true},
		{name: "both_missing_quarter", wave: Wave{Year: 2027}, cutoff: Wave{Year: 2027}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.wave.AtOrAfter(tc.cutoff); got != tc.want {
				t.Fatalf("%v AtOrAfter %v = %v, want %v", tc.wave, tc.cutoff, got, tc.want)
			}
		})
	}
}
