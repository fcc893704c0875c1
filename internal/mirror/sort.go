package mirror

import (
	"fmt"
	"sort"
	"strings"
)

// SortKey selects the primary ordering for ranked mirrors.
type SortKey string

const (
	// SortScore orders by feed score ascending, lower is better.
	SortScore SortKey = "score"
	// SortDelay orders by sync delay ascending.
	SortDelay SortKey = "delay"
	// SortAge orders by time since last sync ascending, freshest first.
	SortAge SortKey = "age"
	// SortCompletion orders by completion percentage descending.
	SortCompletion SortKey = "completion"
	// SortCountry orders by country code, alphabetically.
	SortCountry SortKey = "country"
	// SortURL orders by mirror URL, alphabetically.
	SortURL SortKey = "url"
)

// SortKeys lists the recognized sort keys for help and error text.
func SortKeys() []string {
	return []string{
		string(SortScore), string(SortDelay), string(SortAge),
		string(SortCompletion), string(SortCountry), string(SortURL),
	}
}

// ParseSortKey converts a config string into a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortScore, SortDelay, SortAge, SortCompletion, SortCountry, SortURL:
		return SortKey(s), nil
	default:
		return "", fmt.Errorf("unknown sort key %q (valid: %s)", s, strings.Join(SortKeys(), ", "))
	}
}

// comparators maps each sort key to its primary ordering. Absent values
// always compare as the worst possible value for the key's direction so
// they never rank first. Ties are broken by URL in Sort, never here.
var comparators = map[SortKey]func(a, b *Mirror) int{
	SortScore: func(a, b *Mirror) int { return compareFloatAsc(a.Score, b.Score) },
	SortDelay: func(a, b *Mirror) int { return compareFloatAsc(a.Delay, b.Delay) },
	// Ascending age is descending last_sync; a mirror that never synced
	// has infinite age and sorts last.
	SortAge: func(a, b *Mirror) int {
		switch {
		case a.LastSync == nil && b.LastSync == nil:
			return 0
		case a.LastSync == nil:
			return 1
		case b.LastSync == nil:
			return -1
		case a.LastSync.After(*b.LastSync):
			return -1
		case b.LastSync.After(*a.LastSync):
			return 1
		default:
			return 0
		}
	},
	SortCompletion: func(a, b *Mirror) int {
		switch {
		case a.CompletionPct > b.CompletionPct:
			return -1
		case a.CompletionPct < b.CompletionPct:
			return 1
		default:
			return 0
		}
	},
	SortCountry: func(a, b *Mirror) int { return compareStringAbsentLast(a.CountryCode, b.CountryCode) },
	SortURL:     func(a, b *Mirror) int { return strings.Compare(a.URL, b.URL) },
}

// compareFloatAsc orders optional floats ascending with nil treated as
// positive infinity.
func compareFloatAsc(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

// compareStringAbsentLast orders strings ascending with the empty string
// (field absent from the feed) sorting after every defined value.
func compareStringAbsentLast(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// Sort orders mirrors in place by the given key. The sort is stable and
// every key falls back to URL ordering on ties, so the result is a total
// order reproducible across runs on identical input.
func Sort(mirrors []Mirror, key SortKey) error {
	compare, ok := comparators[key]
	if !ok {
		return fmt.Errorf("unknown sort key %q", key)
	}

	sort.SliceStable(mirrors, func(i, j int) bool {
		if c := compare(&mirrors[i], &mirrors[j]); c != 0 {
			return c < 0
		}
		return mirrors[i].URL < mirrors[j].URL
	})
	return nil
}

// Limit truncates the ordered mirrors to the first n entries. A negative
// n means no limit; n = 0 yields an empty result.
func Limit(mirrors []Mirror, n int) []Mirror {
	if n < 0 || n >= len(mirrors) {
		return mirrors
	}
	return mirrors[:n]
}
