package mirror

import (
	"fmt"
	"time"
)

// Protocol identifies the transport a mirror serves packages over.
type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
	ProtocolRsync Protocol = "rsync"
	ProtocolFTP   Protocol = "ftp"
)

// ParseProtocol converts a feed or config string into a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(s) {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolRsync, ProtocolFTP:
		return Protocol(s), nil
	default:
		return "", fmt.Errorf("unknown protocol %q", s)
	}
}

// Mirror is a single entry from the Arch Linux mirror status feed.
// Optional feed fields are pointers; nil means the feed did not report
// a value. A Mirror is never modified after parsing.
type Mirror struct {
	URL           string
	Protocol      Protocol
	Country       string
	CountryCode   string
	LastSync      *time.Time
	CompletionPct float64
	Delay         *float64 // seconds between upstream publish and last sync
	Score         *float64 // composite quality metric, lower is better
	Active        bool
	ISOs          *bool
	IPv4          *bool
	IPv6          *bool
	Details       string
}

// Age returns the duration since the mirror last synced. The second
// return value is false when the feed has never observed a sync.
func (m *Mirror) Age(now time.Time) (time.Duration, bool) {
	if m.LastSync == nil {
		return 0, false
	}
	return now.Sub(*m.LastSync), true
}

// Status is one parsed snapshot of the mirror status feed.
type Status struct {
	Mirrors   []Mirror
	LastCheck *time.Time

	// Skipped counts records dropped during parsing because they were
	// individually malformed. The rest of the feed is unaffected.
	Skipped int

	// SourceURL and FetchedAt are provenance filled in by the Client.
	SourceURL string
	FetchedAt time.Time
	FromCache bool
}
