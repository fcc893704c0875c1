package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/reflecto/reflecto/internal/safety"
)

// DefaultStatusURL is the canonical Arch Linux mirror status feed.
const DefaultStatusURL = "https://archlinux.org/mirrors/status/json"

const userAgent = "reflecto/0.1"

// The feed is a few hundred KB; a response past this limit is not a
// mirror status document.
const maxStatusResponseBytes int64 = 16 * 1024 * 1024

// FetchError reports a failed status feed retrieval. StatusCode is zero
// when the request never completed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SnapshotCache persists raw feed bodies between invocations so repeated
// runs within the TTL do not hit the upstream feed.
type SnapshotCache interface {
	LatestSnapshot(url string) (body []byte, fetchedAt time.Time, ok bool, err error)
	SaveSnapshot(url string, body []byte, fetchedAt time.Time) error
}

// Client retrieves and parses the mirror status feed, optionally reusing
// a cached snapshot.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	url        string
	cache      SnapshotCache
	cacheTTL   time.Duration
}

// NewClient creates a Client for the given feed URL. cache may be nil to
// disable snapshot reuse; a non-positive ttl always fetches upstream.
func NewClient(url string, cache SnapshotCache, ttl time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: safety.NewHTTPClient(30 * time.Second),
		logger:     logger,
		url:        url,
		cache:      cache,
		cacheTTL:   ttl,
	}
}

// FetchStatus returns the current parsed feed snapshot. A cached body
// younger than the TTL is reused without a network request. A fresh
// fetch that parses successfully is saved back to the cache.
func (c *Client) FetchStatus(ctx context.Context) (*Status, error) {
	if body, fetchedAt, ok := c.cachedBody(); ok {
		status, err := ParseStatus(body)
		if err == nil {
			status.SourceURL = c.url
			status.FetchedAt = fetchedAt
			status.FromCache = true
			c.logger.Debug("using cached feed snapshot", "url", c.url, "age", time.Since(fetchedAt))
			return status, nil
		}
		c.logger.Warn("cached snapshot is malformed, refetching", "url", c.url, "error", err)
	}

	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	status, err := ParseStatus(body)
	if err != nil {
		return nil, err
	}

	fetchedAt := time.Now()
	status.SourceURL = c.url
	status.FetchedAt = fetchedAt

	if c.cache != nil {
		if err := c.cache.SaveSnapshot(c.url, body, fetchedAt); err != nil {
			c.logger.Warn("failed to save feed snapshot", "url", c.url, "error", err)
		}
	}

	return status, nil
}

// cachedBody returns a cached feed body if one exists within the TTL.
func (c *Client) cachedBody() ([]byte, time.Time, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil, time.Time{}, false
	}
	body, fetchedAt, ok, err := c.cache.LatestSnapshot(c.url)
	if err != nil {
		c.logger.Warn("failed to read feed snapshot cache", "url", c.url, "error", err)
		return nil, time.Time{}, false
	}
	if !ok || time.Since(fetchedAt) > c.cacheTTL {
		return nil, time.Time{}, false
	}
	return body, fetchedAt, true
}

// fetch performs a single HTTP GET of the feed. There is no retry; a
// failed fetch surfaces as a *FetchError.
func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	if _, err := safety.ValidateHTTPURL(c.url); err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: c.url, StatusCode: resp.StatusCode}
	}

	body, err := safety.ReadAllWithLimit(resp.Body, maxStatusResponseBytes)
	if err != nil {
		if errors.Is(err, safety.ErrBodyTooLarge) {
			return nil, &FetchError{URL: c.url, Err: fmt.Errorf("response exceeded %d bytes: %w", maxStatusResponseBytes, err)}
		}
		return nil, &FetchError{URL: c.url, Err: err}
	}

	return body, nil
}
