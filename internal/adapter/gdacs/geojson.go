package gdacs

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/paulmach/orb/geojson"
)

// Properties mapped to typed DisasterEvent fields. Everything else that is
// scalar passes through into RawAttributes.
var geojsonTypedProps = map[string]bool{
	"eventtype":  true,
	"eventid":    true,
	"alertlevel": true,
	"fromdate":   true,
}

// ParseGeoJSON decodes a GDACS FeatureCollection into canonical events.
// Features without a derivable source id or without geometry are skipped
// with a warning. An empty or undecodable payload is a ParseError; a valid
// collection with zero features is an empty result, meaning the feed has no
// active events.
func ParseGeoJSON(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, &domain.ParseError{Source: domain.SourceGeoJSON, Reason: "empty payload"}
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, nil, &domain.ParseError{
			Source: domain.SourceGeoJSON,
			Reason: fmt.Sprintf("decode feature collection: %v", err),
		}
	}

	events := make([]domain.DisasterEvent, 0, len(fc.Features))
	var warnings []domain.ParseWarning

	for i, f := range fc.Features {
		if f == nil {
			warnings = append(warnings, geojsonWarning(i, "", "null feature"))
			continue
		}

		id := domain.SourceID(propString(f.Properties, "eventtype"), propString(f.Properties, "eventid"))
		if id == "" {
			warnings = append(warnings, geojsonWarning(i, "", "missing eventtype or eventid"))
			continue
		}
		if f.Geometry == nil {
			warnings = append(warnings, geojsonWarning(i, id, "missing geometry"))
			continue
		}

		events = append(events, domain.DisasterEvent{
			SourceID:      id,
			EventType:     domain.EventTypeFromCode(propString(f.Properties, "eventtype")),
			Severity:      strings.ToLower(propString(f.Properties, "alertlevel")),
			Geometry:      f.Geometry,
			OccurredAt:    parseFeedTime(propString(f.Properties, "fromdate")),
			RawAttributes: passthroughProps(f.Properties),
			FetchedAt:     fetchedAt,
		})
	}

	return events, warnings, nil
}

func geojsonWarning(index int, sourceID, reason string) domain.ParseWarning {
	return domain.ParseWarning{
		Source:   domain.SourceGeoJSON,
		Index:    index,
		SourceID: sourceID,
		Reason:   reason,
	}
}

// propString reads a property that upstream types inconsistently: event ids
// arrive as strings in some responses and numbers in others.
func propString(props geojson.Properties, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// passthroughProps keeps the scalar properties not mapped to typed fields.
// Nested objects (url blocks, severity detail) are dropped; the typed schema
// and the XML side carry what matters from those.
func passthroughProps(props geojson.Properties) map[string]string {
	attrs := make(map[string]string)
	for k, v := range props {
		if geojsonTypedProps[strings.ToLower(k)] {
			continue
		}
		switch v.(type) {
		case string, float64, int, bool:
			if s := propString(props, k); s != "" {
				attrs[k] = s
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
