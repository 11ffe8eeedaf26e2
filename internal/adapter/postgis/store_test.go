package postgis

import (
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRow(t *testing.T) {
	event := domain.DisasterEvent{
		SourceID:      "EQ1487904",
		EventType:     domain.TypeEarthquake,
		Severity:      domain.SeverityOrange,
		Geometry:      orb.Point{27.1, 37.9},
		RawAttributes: map[string]string{"country": "Turkey"},
	}

	row, err := encodeRow(event)
	require.NoError(t, err)

	assert.Equal(t, event.SourceID, row.event.SourceID)
	assert.JSONEq(t, `{"type":"Point","coordinates":[27.1,37.9]}`, string(row.geomJSON))
	assert.JSONEq(t, `{"country":"Turkey"}`, string(row.attrJSON))
}

func TestEncodeRowNilAttributes(t *testing.T) {
	row, err := encodeRow(domain.DisasterEvent{
		SourceID:  "FL1102900",
		EventType: domain.TypeFlood,
		Geometry:  orb.Point{0, 0},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{}`, string(row.attrJSON))
}

func TestEncodeRowRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name     string
		geometry orb.Geometry
	}{
		{name: "missing geometry", geometry: nil},
		{name: "longitude out of range", geometry: orb.Point{181, 10}},
		{name: "open polygon ring", geometry: orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encodeRow(domain.DisasterEvent{SourceID: "EQ1", Geometry: tt.geometry})
			assert.Error(t, err)
		})
	}
}

func TestUpsertSQL(t *testing.T) {
	s := &Store{table: "disaster_events"}
	sql := s.upsertSQL()

	assert.Contains(t, sql, "INSERT INTO disaster_events")
	assert.Contains(t, sql, "ON CONFLICT (source_id) DO UPDATE")
	assert.Contains(t, sql, "ST_GeomFromGeoJSON($4)")
	assert.Equal(t, 7, strings.Count(sql, "EXCLUDED."), "every non-key column should be refreshed on conflict")
}

func TestNullableTime(t *testing.T) {
	assert.Nil(t, nullableTime(time.Time{}))

	ts := time.Date(2026, time.March, 14, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, ts, nullableTime(ts))
}
