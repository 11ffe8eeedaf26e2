package domain

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Labels for the two upstream feed formats, used in errors, warnings, and
// metrics so failures are attributable to one side of the feed.
const (
	SourceGeoJSON = "geojson"
	SourceXML     = "xml"
)

// GDACS alert levels, least to most severe.
const (
	SeverityGreen  = "green"
	SeverityOrange = "orange"
	SeverityRed    = "red"
)

var severityRank = map[string]int{
	SeverityGreen:  1,
	SeverityOrange: 2,
	SeverityRed:    3,
}

// SeverityRank orders alert levels for comparison. Unknown or empty values
// rank 0, below green.
func SeverityRank(severity string) int {
	return severityRank[strings.ToLower(severity)]
}

// Normalized event type names.
const (
	TypeEarthquake = "earthquake"
	TypeCyclone    = "cyclone"
	TypeFlood      = "flood"
	TypeVolcano    = "volcano"
	TypeWildfire   = "wildfire"
	TypeDrought    = "drought"
	TypeTsunami    = "tsunami"
)

var eventTypeByCode = map[string]string{
	"EQ": TypeEarthquake,
	"TC": TypeCyclone,
	"FL": TypeFlood,
	"VO": TypeVolcano,
	"WF": TypeWildfire,
	"DR": TypeDrought,
	"TS": TypeTsunami,
}

// EventTypeFromCode maps a GDACS two-letter event code to its long name.
// Unknown codes pass through lower-cased so new upstream categories are
// kept rather than dropped.
func EventTypeFromCode(code string) string {
	code = strings.TrimSpace(code)
	if name, ok := eventTypeByCode[strings.ToUpper(code)]; ok {
		return name
	}
	return strings.ToLower(code)
}

// SourceID builds the canonical upstream identity from a GDACS event type
// code and event id, e.g. ("EQ", "1487904") -> "EQ1487904". Both parsers use
// this helper, so the XML and GeoJSON representations of one event resolve
// to the same id. Returns "" when either part is missing.
func SourceID(eventTypeCode, eventID string) string {
	code := strings.ToUpper(strings.TrimSpace(eventTypeCode))
	id := strings.TrimSpace(eventID)
	if code == "" || id == "" {
		return ""
	}
	return code + id
}

// DisasterEvent is the canonical record both parsers produce, the reconciler
// merges, and the store persists. Exactly one row exists per SourceID.
type DisasterEvent struct {
	SourceID      string
	EventType     string
	Severity      string
	Geometry      orb.Geometry
	OccurredAt    time.Time // upstream-reported; zero when the feed omitted it
	RawAttributes map[string]string
	FetchedAt     time.Time // stamped at ingestion; excluded from fingerprints
}

// HasGeometry reports whether the event carries a spatial footprint.
func (e DisasterEvent) HasGeometry() bool { return e.Geometry != nil }

// ParseWarning records a single skipped feed record. Warnings are counted
// and logged; they never fail the document.
type ParseWarning struct {
	Source   string
	Index    int
	SourceID string // empty when the record had none
	Reason   string
}

// FailedRecord identifies an event excluded from a write pass.
type FailedRecord struct {
	SourceID string
	Reason   string
}

// SyncResult reports one write pass against the spatial store.
type SyncResult struct {
	Inserted int
	Updated  int
	Failed   []FailedRecord
}
