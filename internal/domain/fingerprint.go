package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Fingerprint hashes every mutable field except FetchedAt. Equal fingerprints
// mean the persisted row needs no write. The value is stored with the row so
// the next cycle compares hashes instead of full rows.
func (e DisasterEvent) Fingerprint() string {
	parts := []string{
		e.SourceID,
		e.EventType,
		e.Severity,
		geometryString(e.Geometry),
		timeString(e.OccurredAt),
		attributeString(e.RawAttributes),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

func geometryString(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return g.GeoJSONType()
	}
	return string(data)
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// attributeString serializes RawAttributes in sorted key order so the hash
// is independent of map iteration order.
func attributeString(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+attrs[k])
	}
	return strings.Join(pairs, ";")
}
