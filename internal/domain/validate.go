package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ValidateGeometry checks an event geometry before persistence: present,
// finite, inside WGS-84 bounds, rings closed. Callers turn a failure into a
// ValidationError carrying the owning SourceID.
func ValidateGeometry(g orb.Geometry) error {
	switch geom := g.(type) {
	case nil:
		return errors.New("missing geometry")
	case orb.Point:
		return validatePoint(geom)
	case orb.MultiPoint:
		if len(geom) == 0 {
			return errors.New("empty multipoint")
		}
		for i, p := range geom {
			if err := validatePoint(p); err != nil {
				return fmt.Errorf("point %d: %w", i, err)
			}
		}
		return nil
	case orb.Polygon:
		return validatePolygon(geom)
	case orb.MultiPolygon:
		if len(geom) == 0 {
			return errors.New("empty multipolygon")
		}
		for i, p := range geom {
			if err := validatePolygon(p); err != nil {
				return fmt.Errorf("polygon %d: %w", i, err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
}

func validatePoint(p orb.Point) error {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return errors.New("non-finite coordinates")
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	return nil
}

func validatePolygon(poly orb.Polygon) error {
	if len(poly) == 0 {
		return errors.New("polygon has no rings")
	}
	for i, ring := range poly {
		if len(ring) < 4 {
			return fmt.Errorf("ring %d has %d points, need at least 4", i, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("ring %d is not closed", i)
		}
		for _, pt := range ring {
			if err := validatePoint(pt); err != nil {
				return fmt.Errorf("ring %d: %w", i, err)
			}
		}
	}
	return nil
}
