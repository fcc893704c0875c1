package mirror

import (
	"fmt"
	"strings"
	"time"
)

// serverLineFormat is the pacman mirrorlist directive. $repo and $arch
// are substituted by pacman itself and must be emitted literally.
const serverLineFormat = "Server = %s$repo/os/$arch"

// ListMeta describes the provenance recorded in the mirrorlist header.
type ListMeta struct {
	SourceURL   string
	RetrievedAt time.Time
	FromCache   bool
	SortKey     SortKey
}

// RenderMirrorlist serializes ordered mirrors into pacman mirrorlist
// text: a comment preamble followed by one Server directive per mirror,
// in the given order. An empty input renders a header-only list.
func RenderMirrorlist(mirrors []Mirror, meta ListMeta) string {
	var b strings.Builder

	b.WriteString("# Arch Linux mirror list generated by reflecto\n")
	b.WriteString("#\n")
	if meta.SourceURL != "" {
		fmt.Fprintf(&b, "# from:      %s\n", meta.SourceURL)
	}
	if !meta.RetrievedAt.IsZero() {
		fmt.Fprintf(&b, "# retrieved: %s\n", meta.RetrievedAt.UTC().Format(time.RFC3339))
	}
	if meta.FromCache {
		b.WriteString("# (served from local snapshot cache)\n")
	}
	if meta.SortKey != "" {
		fmt.Fprintf(&b, "# sorted by: %s\n", meta.SortKey)
	}
	b.WriteString("\n")

	for i := range mirrors {
		fmt.Fprintf(&b, serverLineFormat+"\n", mirrors[i].URL)
	}

	return b.String()
}

// ServerURLs extracts the mirror URLs from rendered mirrorlist text, in
// order. Comment and blank lines are ignored, as pacman does.
func ServerURLs(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		value, ok := strings.CutPrefix(line, "Server")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value, ok = strings.CutPrefix(value, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.TrimSuffix(value, "$repo/os/$arch")
		urls = append(urls, value)
	}
	return urls
}
