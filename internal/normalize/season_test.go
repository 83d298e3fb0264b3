package normalize

import "testing"

func TestNormalizeSeason(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart int
		wantEnd   int
		wantOK    bool
	}{
		{"slash range", "2020/21", 2020, 2021, true},
		{"dash range full years", "2020-2021", 2020, 2021, true},
		{"two-digit modern range", "20-21", 2020, 2021, true},
		{"two-digit historic range", "98-99", 1998, 1999, true},
		{"bare year", "2020", 2020, 2021, true},
		{"century rollover", "1999/00", 1999, 2000, true},
		{"label with prefix text", "Season 2019/20", 2019, 2020, true},
		{"spaces around separator", "2018 - 19", 2018, 2019, true},
		{"empty input", "", 0, 0, false},
		{"no digits", "current season", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := NormalizeSeason(tt.input)

			if ok != tt.wantOK {
				t.Fatalf("NormalizeSeason(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}

			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("NormalizeSeason(%q) = (%d, %d), want (%d, %d)",
					tt.input, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
