package mirror

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// ParseError indicates the status feed was too malformed to extract any
// records. Defects local to a single record do not produce a ParseError.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed mirror status feed: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// statusJSON models the top level of the feed. Records are kept raw so a
// single bad entry cannot abort decoding of the whole batch.
type statusJSON struct {
	LastCheck *string           `json:"last_check"`
	URLs      []json.RawMessage `json:"urls"`
}

type mirrorJSON struct {
	URL           string   `json:"url"`
	Protocol      string   `json:"protocol"`
	Country       string   `json:"country"`
	CountryCode   string   `json:"country_code"`
	LastSync      *string  `json:"last_sync"`
	CompletionPct *float64 `json:"completion_pct"`
	Delay         *float64 `json:"delay"`
	Score         *float64 `json:"score"`
	Active        *bool    `json:"active"`
	ISOs          *bool    `json:"isos"`
	IPv4          *bool    `json:"ipv4"`
	IPv6          *bool    `json:"ipv6"`
	Details       string   `json:"details"`
}

// ParseStatus decodes a raw status feed body into a Status, preserving
// feed order. A structurally invalid document returns a *ParseError and
// no partial result. Individually malformed records (missing url or
// active flag, wrong field types, unparseable timestamps, out-of-range
// values) are dropped, logged, and counted in Status.Skipped.
func ParseStatus(data []byte) (*Status, error) {
	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Err: err}
	}
	if raw.URLs == nil {
		return nil, &ParseError{Err: fmt.Errorf("missing urls array")}
	}

	log := slog.Default()
	status := &Status{Mirrors: make([]Mirror, 0, len(raw.URLs))}

	if raw.LastCheck != nil {
		if ts, err := time.Parse(time.RFC3339, *raw.LastCheck); err == nil {
			status.LastCheck = &ts
		}
	}

	for i, rec := range raw.URLs {
		m, err := parseRecord(rec)
		if err != nil {
			log.Debug("dropping malformed mirror record", "index", i, "error", err)
			status.Skipped++
			continue
		}
		status.Mirrors = append(status.Mirrors, m)
	}

	return status, nil
}

func parseRecord(rec json.RawMessage) (Mirror, error) {
	var mj mirrorJSON
	if err := json.Unmarshal(rec, &mj); err != nil {
		return Mirror{}, err
	}
	if mj.URL == "" {
		return Mirror{}, fmt.Errorf("missing url")
	}
	if mj.Active == nil {
		return Mirror{}, fmt.Errorf("missing active flag for %s", mj.URL)
	}

	proto, err := ParseProtocol(mj.Protocol)
	if err != nil {
		return Mirror{}, fmt.Errorf("%s: %w", mj.URL, err)
	}

	m := Mirror{
		URL:         mj.URL,
		Protocol:    proto,
		Country:     mj.Country,
		CountryCode: mj.CountryCode,
		Delay:       mj.Delay,
		Score:       mj.Score,
		Active:      *mj.Active,
		ISOs:        mj.ISOs,
		IPv4:        mj.IPv4,
		IPv6:        mj.IPv6,
		Details:     mj.Details,
	}

	if mj.LastSync != nil {
		ts, err := time.Parse(time.RFC3339, *mj.LastSync)
		if err != nil {
			return Mirror{}, fmt.Errorf("%s: bad last_sync: %w", mj.URL, err)
		}
		m.LastSync = &ts
	}

	if mj.CompletionPct != nil {
		pct := *mj.CompletionPct
		if pct < 0 || pct > 1 {
			return Mirror{}, fmt.Errorf("%s: completion_pct %v out of range", mj.URL, pct)
		}
		m.CompletionPct = pct
	}

	if mj.Delay != nil && *mj.Delay < 0 {
		return Mirror{}, fmt.Errorf("%s: negative delay %v", mj.URL, *mj.Delay)
	}
	if mj.Score != nil && *mj.Score < 0 {
		return Mirror{}, fmt.Errorf("%s: negative score %v", mj.URL, *mj.Score)
	}

	return m, nil
}
