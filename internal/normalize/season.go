package normalize

import (
	"regexp"
	"strconv"
)

var (
	// seasonRangePattern matches "2020/21", "2020-2021", "20-21" style labels.
	seasonRangePattern = regexp.MustCompile(`(\d{2,4})\s*[-/]\s*(\d{2,4})`)
	// seasonYearPattern matches a bare four-digit year.
	seasonYearPattern = regexp.MustCompile(`\d{4}`)
)

const twoDigitModernCutoff = 30

// NormalizeSeason parses a season label into its start and end years.
// Range labels take precedence over bare years:
//
//	"2020/21"   → (2020, 2021)
//	"2020-2021" → (2020, 2021)
//	"20-21"     → (2020, 2021)
//	"2020"      → (2020, 2021)
//
// Two-digit start years are treated as modern (2000s) up to 30, 1900s above;
// two-digit end years inherit the start year's century. An end year that
// still falls before the start (e.g. "1999/00") becomes start+1.
// Unparseable labels return ok=false.
func NormalizeSeason(label string) (start, end int, ok bool) {
	if label == "" {
		return 0, 0, false
	}

	if m := seasonRangePattern.FindStringSubmatch(label); m != nil {
		start = expandYear(m[1], 0)
		end = expandYear(m[2], start)

		if end < start {
			end = start + 1
		}

		return start, end, true
	}

	if m := seasonYearPattern.FindString(label); m != "" {
		year, _ := strconv.Atoi(m)

		return year, year + 1, true
	}

	return 0, 0, false
}

// expandYear widens a season-year fragment to four digits. A non-zero
// referenceStart supplies the century for short end-year fragments.
func expandYear(fragment string, referenceStart int) int {
	if len(fragment) == 4 {
		year, _ := strconv.Atoi(fragment)

		return year
	}

	if referenceStart > 0 {
		century := strconv.Itoa(referenceStart)[:2]
		year, _ := strconv.Atoi(century + fragment)

		return year
	}

	value, _ := strconv.Atoi(fragment)
	if value <= twoDigitModernCutoff {
		return 2000 + value
	}

	return 1900 + value
}
