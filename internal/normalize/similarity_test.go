package normalize

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 0.0},
		{"left empty", "", "arsenal", 0.0},
		{"right empty", "arsenal", "", 0.0},
		{"identical", "arsenal", "arsenal", 1.0},
		{"single edit", "jon doe", "john doe", 0.875},
		{"disjoint", "abc", "xyz", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ratio(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRatio_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"manchester united", "manchester utd"},
		{"john doe", "jon doe"},
		{"a", "abcd"},
	}

	for _, pair := range pairs {
		if got, rev := Ratio(pair[0], pair[1]), Ratio(pair[1], pair[0]); !almostEqual(got, rev) {
			t.Errorf("Ratio(%q, %q) = %v but reversed = %v", pair[0], pair[1], got, rev)
		}
	}
}

func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 0.0},
		{"one empty", "arsenal", "", 0.0},
		{"word order ignored", "doe john", "john doe", 1.0},
		{"identical", "real madrid", "real madrid", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokenSortRatio(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("TokenSortRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokenSortRatio_AtLeastAsHighAsRatioForReordered(t *testing.T) {
	a, b := "united manchester", "manchester united"

	if plain, sorted := Ratio(a, b), TokenSortRatio(a, b); sorted < plain {
		t.Errorf("TokenSortRatio = %v below plain Ratio = %v for reordered tokens", sorted, plain)
	}
}
