package store

import "time"

// Snapshot is a cached raw mirror status feed body.
type Snapshot struct {
	ID        int64
	URL       string
	FetchedAt time.Time
	Body      []byte
}

// Run records one mirrorlist generation.
type Run struct {
	ID             int64
	StartedAt      time.Time
	SourceURL      string
	FromCache      bool
	TotalMirrors   int
	SkippedRecords int
	Retained       int
	SortKey        string
	Limit          int    // -1 = unlimited
	OutputPath     string // empty = stdout
	Status         string // "success" or "failed"
	ErrorMessage   string
}
