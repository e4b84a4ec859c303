package rag

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// maxFilterSpan keeps now.Add from overflowing on absurd counts.
const maxFilterSpan = 100 * 365 * day

type timePattern struct {
	re     *regexp.Regexp
	cutoff func(now time.Time, m []string) (time.Time, bool)
}

func lastN(unit time.Duration) func(time.Time, []string) (time.Time, bool) {
	return func(now time.Time, m []string) (time.Time, bool) {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		if n > int64(maxFilterSpan/unit) {
			return now.Add(-maxFilterSpan), true
		}
		return now.Add(-time.Duration(n) * unit), true
	}
}

func fixed(back time.Duration) func(time.Time, []string) (time.Time, bool) {
	return func(now time.Time, _ []string) (time.Time, bool) {
		return now.Add(-back), true
	}
}

// Order matters: the "last N ..." forms must win over "last week" and
// "last month".
var timePatterns = []timePattern{
	{regexp.MustCompile(`last (\d+) day`), lastN(day)},
	{regexp.MustCompile(`last (\d+) week`), lastN(7 * day)},
	{regexp.MustCompile(`last (\d+) month`), lastN(30 * day)},
	{regexp.MustCompile(`today`), func(now time.Time, _ []string) (time.Time, bool) {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	}},
	{regexp.MustCompile(`yesterday`), fixed(day)},
	{regexp.MustCompile(`this week`), func(now time.Time, _ []string) (time.Time, bool) {
		return now.Add(-time.Duration(now.Weekday()) * day), true
	}},
	{regexp.MustCompile(`this month`), func(now time.Time, _ []string) (time.Time, bool) {
		y, m, _ := now.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location()), true
	}},
	{regexp.MustCompile(`last week`), fixed(7 * day)},
	{regexp.MustCompile(`last month`), fixed(30 * day)},
}

// ParseTimeFilter maps a phrase such as "last 3 days" or "this month" to the
// earliest creation time a document may have. ok is false when the phrase is
// empty or not recognised, meaning no time filtering.
func ParseTimeFilter(phrase string, now time.Time) (cutoff time.Time, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	if lower == "" {
		return time.Time{}, false
	}
	for _, p := range timePatterns {
		if m := p.re.FindStringSubmatch(lower); m != nil {
			if t, matched := p.cutoff(now, m); matched {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
