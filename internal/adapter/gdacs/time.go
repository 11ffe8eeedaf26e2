package gdacs

import (
	"strings"
	"time"
)

// feedTimeLayouts covers the formats GDACS uses across the two feeds:
// RFC1123-style dates in the RSS tags, bare ISO timestamps in GeoJSON
// properties.
var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseFeedTime tries each known layout in order. Zero time when none match;
// temporal fields are optional everywhere downstream.
func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// firstFeedTime returns the first candidate that parses.
func firstFeedTime(candidates ...string) time.Time {
	for _, c := range candidates {
		if t := parseFeedTime(c); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
