package mirror

import (
	"strings"
	"time"
)

// Predicate reports whether a mirror should be retained.
type Predicate func(m *Mirror) bool

// Filters holds the user-selectable retention criteria. Nil thresholds
// and empty allow-sets disable the corresponding filter. The zero value
// keeps every active mirror. Inactive mirrors are always excluded.
type Filters struct {
	Protocols     []Protocol
	MaxAge        *float64 // hours since last sync
	MinCompletion *float64
	MaxDelay      *float64 // seconds
	MaxScore      *float64
	Countries     []string // country codes, case-insensitive
	RequireISOs   bool
	RequireIPv4   bool
	RequireIPv6   bool
}

// predicates builds the enabled predicate chain. Each predicate is
// independent; they combine by conjunction so ordering does not affect
// the result. Mirrors missing a value a threshold needs (age, delay,
// score, country) cannot satisfy that threshold and are excluded.
func (f Filters) predicates(now time.Time) []Predicate {
	preds := []Predicate{
		func(m *Mirror) bool { return m.Active },
	}

	if len(f.Protocols) > 0 {
		allowed := make(map[Protocol]bool, len(f.Protocols))
		for _, p := range f.Protocols {
			allowed[p] = true
		}
		preds = append(preds, func(m *Mirror) bool { return allowed[m.Protocol] })
	}

	if f.MaxAge != nil {
		maxAge := time.Duration(*f.MaxAge * float64(time.Hour))
		preds = append(preds, func(m *Mirror) bool {
			age, ok := m.Age(now)
			return ok && age <= maxAge
		})
	}

	if f.MinCompletion != nil {
		min := *f.MinCompletion
		preds = append(preds, func(m *Mirror) bool { return m.CompletionPct >= min })
	}

	if f.MaxDelay != nil {
		max := *f.MaxDelay
		preds = append(preds, func(m *Mirror) bool { return m.Delay != nil && *m.Delay <= max })
	}

	if f.MaxScore != nil {
		max := *f.MaxScore
		preds = append(preds, func(m *Mirror) bool { return m.Score != nil && *m.Score <= max })
	}

	if len(f.Countries) > 0 {
		allowed := make(map[string]bool, len(f.Countries))
		for _, c := range f.Countries {
			allowed[strings.ToUpper(c)] = true
		}
		preds = append(preds, func(m *Mirror) bool {
			return m.CountryCode != "" && allowed[strings.ToUpper(m.CountryCode)]
		})
	}

	if f.RequireISOs {
		preds = append(preds, func(m *Mirror) bool { return m.ISOs != nil && *m.ISOs })
	}
	if f.RequireIPv4 {
		preds = append(preds, func(m *Mirror) bool { return m.IPv4 != nil && *m.IPv4 })
	}
	if f.RequireIPv6 {
		preds = append(preds, func(m *Mirror) bool { return m.IPv6 != nil && *m.IPv6 })
	}

	return preds
}

// Apply returns the mirrors satisfying every enabled filter, preserving
// input order. An empty result is valid, not an error.
func (f Filters) Apply(mirrors []Mirror, now time.Time) []Mirror {
	preds := f.predicates(now)

	kept := make([]Mirror, 0, len(mirrors))
	for i := range mirrors {
		if satisfiesAll(&mirrors[i], preds) {
			kept = append(kept, mirrors[i])
		}
	}
	return kept
}

func satisfiesAll(m *Mirror, preds []Predicate) bool {
	for _, p := range preds {
		if !p(m) {
			return false
		}
	}
	return true
}
