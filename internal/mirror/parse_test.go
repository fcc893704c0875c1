package mirror

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// Fixture records mimic the live archlinux.org status feed.
const mirrorRutgers = `{
	"url": "https://mirrors.rutgers.edu/archlinux/",
	"protocol": "https",
	"last_sync": null,
	"completion_pct": 0.0,
	"delay": null,
	"duration_avg": null,
	"duration_stddev": null,
	"score": null,
	"active": true,
	"country": "United States",
	"country_code": "US",
	"isos": true,
	"ipv4": true,
	"ipv6": false,
	"details": "https://archlinux.org/mirrors/rutgers.edu/910/"
}`

const mirrorNTUA = `{
	"url": "http://ftp.ntua.gr/pub/linux/archlinux/",
	"protocol": "http",
	"last_sync": "2024-05-01T14:25:08Z",
	"completion_pct": 1.0,
	"delay": 6354,
	"duration_avg": 0.4358575581256008,
	"duration_stddev": 0.6512862688716142,
	"score": 2.852143826997215,
	"active": true,
	"country": "Greece",
	"country_code": "GR",
	"isos": true,
	"ipv4": true,
	"ipv6": true,
	"details": "https://archlinux.org/mirrors/ntua.gr/333/"
}`

const mirrorAarnet = `{
	"url": "https://mirror.aarnet.edu.au/pub/archlinux/",
	"protocol": "https",
	"last_sync": "2024-04-01T08:22:54Z",
	"completion_pct": 1.0,
	"delay": 1863,
	"duration_avg": 1.1129106909958357,
	"duration_stddev": 0.23354254068513589,
	"score": 1.8639532316809715,
	"active": true,
	"country": "Australia",
	"country_code": "AU",
	"isos": true,
	"ipv4": true,
	"ipv6": true,
	"details": "https://archlinux.org/mirrors/aarnet.edu.au/5/"
}`

const mirrorRackspace = `{
	"url": "http://mirror.rackspace.com/archlinux/",
	"protocol": "http",
	"last_sync": "2024-05-04T09:30:12Z",
	"completion_pct": 0.8645833333333334,
	"delay": 12205,
	"duration_avg": 0.3613546647523579,
	"duration_stddev": 0.42918278405415544,
	"score": 4.83564170785653,
	"active": true,
	"country": "",
	"country_code": "",
	"isos": true,
	"ipv4": true,
	"ipv6": false,
	"details": "https://archlinux.org/mirrors/rackspace.com/712/"
}`

// feedJSON wraps record fixtures in a status feed document.
func feedJSON(records ...string) []byte {
	return []byte(fmt.Sprintf(
		`{"cutoff": 86400, "last_check": "2024-05-05T10:00:00Z", "num_checks": 17, "version": 3, "urls": [%s]}`,
		strings.Join(records, ","),
	))
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(feedJSON(mirrorRutgers, mirrorNTUA, mirrorAarnet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(status.Mirrors) != 3 {
		t.Fatalf("expected 3 mirrors, got %d", len(status.Mirrors))
	}
	if status.Skipped != 0 {
		t.Errorf("expected no skipped records, got %d", status.Skipped)
	}

	// Feed order must be preserved
	wantOrder := []string{
		"https://mirrors.rutgers.edu/archlinux/",
		"http://ftp.ntua.gr/pub/linux/archlinux/",
		"https://mirror.aarnet.edu.au/pub/archlinux/",
	}
	for i, want := range wantOrder {
		if status.Mirrors[i].URL != want {
			t.Errorf("mirror %d: got URL %q, want %q", i, status.Mirrors[i].URL, want)
		}
	}

	rutgers := status.Mirrors[0]
	if rutgers.Protocol != ProtocolHTTPS {
		t.Errorf("got protocol %q, want https", rutgers.Protocol)
	}
	if rutgers.Score != nil {
		t.Errorf("expected nil score for null feed value, got %v", *rutgers.Score)
	}
	if rutgers.LastSync != nil {
		t.Errorf("expected nil last_sync for null feed value, got %v", *rutgers.LastSync)
	}
	if rutgers.Delay != nil {
		t.Errorf("expected nil delay for null feed value, got %v", *rutgers.Delay)
	}
	if !rutgers.Active {
		t.Error("expected active mirror")
	}
	if rutgers.CountryCode != "US" {
		t.Errorf("got country code %q, want US", rutgers.CountryCode)
	}
	if rutgers.IPv6 == nil || *rutgers.IPv6 {
		t.Error("expected ipv6 = false")
	}

	ntua := status.Mirrors[1]
	if ntua.Score == nil || *ntua.Score != 2.852143826997215 {
		t.Errorf("unexpected score: %v", ntua.Score)
	}
	if ntua.Delay == nil || *ntua.Delay != 6354 {
		t.Errorf("unexpected delay: %v", ntua.Delay)
	}
	if ntua.LastSync == nil {
		t.Fatal("expected last_sync to be set")
	}
	wantSync := time.Date(2024, 5, 1, 14, 25, 8, 0, time.UTC)
	if !ntua.LastSync.Equal(wantSync) {
		t.Errorf("got last_sync %v, want %v", ntua.LastSync, wantSync)
	}
	if ntua.CompletionPct != 1.0 {
		t.Errorf("got completion %v, want 1.0", ntua.CompletionPct)
	}

	if status.LastCheck == nil {
		t.Error("expected last_check to be set")
	}
}

func TestParseStatusMalformedFeed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not json at all"},
		{"wrong top-level type", `[1, 2, 3]`},
		{"missing urls", `{"last_check": "2024-05-05T10:00:00Z"}`},
		{"urls wrong type", `{"urls": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatus([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("got %T, want *ParseError", err)
			}
		})
	}
}

func TestParseStatusDropsMalformedRecords(t *testing.T) {
	badRecords := []string{
		`{"protocol": "https", "active": true}`,                                                   // missing url
		`{"url": "https://no-active.example.org/", "protocol": "https"}`,                          // missing active
		`{"url": "https://bad-proto.example.org/", "protocol": "gopher", "active": true}`,         // unknown protocol
		`{"url": "https://bad-sync.example.org/", "protocol": "https", "active": true, "last_sync": "yesterday"}`,
		`{"url": "https://bad-pct.example.org/", "protocol": "https", "active": true, "completion_pct": 1.5}`,
		`{"url": "https://bad-delay.example.org/", "protocol": "https", "active": true, "delay": -3}`,
		`"just a string"`, // record is not an object
	}

	records := append([]string{mirrorNTUA}, badRecords...)
	records = append(records, mirrorAarnet)

	status, err := ParseStatus(feedJSON(records...))
	if err != nil {
		t.Fatalf("a malformed record must not abort the batch: %v", err)
	}

	if status.Skipped != len(badRecords) {
		t.Errorf("got %d skipped records, want %d", status.Skipped, len(badRecords))
	}
	if len(status.Mirrors) != 2 {
		t.Fatalf("got %d mirrors, want 2", len(status.Mirrors))
	}
	if status.Mirrors[0].URL != "http://ftp.ntua.gr/pub/linux/archlinux/" {
		t.Errorf("unexpected first mirror: %s", status.Mirrors[0].URL)
	}
	if status.Mirrors[1].URL != "https://mirror.aarnet.edu.au/pub/archlinux/" {
		t.Errorf("unexpected second mirror: %s", status.Mirrors[1].URL)
	}
}

func TestMirrorAge(t *testing.T) {
	now := time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)

	synced := time.Date(2024, 5, 4, 10, 0, 0, 0, time.UTC)
	m := Mirror{URL: "https://a.example.org/", LastSync: &synced}
	age, ok := m.Age(now)
	if !ok {
		t.Fatal("expected defined age")
	}
	if age != 24*time.Hour {
		t.Errorf("got age %v, want 24h", age)
	}

	never := Mirror{URL: "https://b.example.org/"}
	if _, ok := never.Age(now); ok {
		t.Error("expected undefined age for never-synced mirror")
	}
}

func TestParseProtocol(t *testing.T) {
	for _, valid := range []string{"http", "https", "rsync", "ftp"} {
		if _, err := ParseProtocol(valid); err != nil {
			t.Errorf("ParseProtocol(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "HTTP", "gopher", "ssh"} {
		if _, err := ParseProtocol(invalid); err == nil {
			t.Errorf("ParseProtocol(%q) expected error", invalid)
		}
	}
}
