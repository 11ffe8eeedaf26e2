package domain

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGeometry(t *testing.T) {
	closedRing := orb.Ring{{26, 37}, {28, 37}, {28, 39}, {26, 37}}
	openRing := orb.Ring{{26, 37}, {28, 37}, {28, 39}, {27, 40}}

	tests := []struct {
		name    string
		geom    orb.Geometry
		wantErr string
	}{
		{"valid point", orb.Point{27.1, 37.9}, ""},
		{"valid polygon", orb.Polygon{closedRing}, ""},
		{"valid multipolygon", orb.MultiPolygon{{closedRing}}, ""},
		{"valid multipoint", orb.MultiPoint{{27.1, 37.9}, {27.2, 38.0}}, ""},
		{"nil geometry", nil, "missing geometry"},
		{"longitude out of range", orb.Point{181, 0}, "longitude"},
		{"latitude out of range", orb.Point{0, -91}, "latitude"},
		{"nan coordinate", orb.Point{math.NaN(), 10}, "non-finite"},
		{"empty polygon", orb.Polygon{}, "no rings"},
		{"short ring", orb.Polygon{{{0, 0}, {1, 1}, {0, 0}}}, "at least 4"},
		{"open ring", orb.Polygon{openRing}, "not closed"},
		{"empty multipolygon", orb.MultiPolygon{}, "empty multipolygon"},
		{"bad nested ring", orb.MultiPolygon{{openRing}}, "not closed"},
		{"unsupported type", orb.LineString{{0, 0}, {1, 1}}, "unsupported geometry type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeometry(tt.geom)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
