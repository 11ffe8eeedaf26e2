package domain

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func fingerprintEvent() DisasterEvent {
	return DisasterEvent{
		SourceID:   "EQ1487904",
		EventType:  TypeEarthquake,
		Severity:   SeverityOrange,
		Geometry:   orb.Point{27.1, 37.9},
		OccurredAt: time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC),
		RawAttributes: map[string]string{
			"alertscore": "1.5",
			"country":    "Turkey",
			"population": "34000",
		},
		FetchedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 32)
}

func TestFingerprint_IgnoresFetchedAt(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()
	b.FetchedAt = b.FetchedAt.Add(24 * time.Hour)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_SensitiveToMutableFields(t *testing.T) {
	base := fingerprintEvent()

	mutations := map[string]func(*DisasterEvent){
		"severity":    func(e *DisasterEvent) { e.Severity = SeverityRed },
		"event type":  func(e *DisasterEvent) { e.EventType = TypeFlood },
		"geometry":    func(e *DisasterEvent) { e.Geometry = orb.Point{27.2, 37.9} },
		"occurred at": func(e *DisasterEvent) { e.OccurredAt = e.OccurredAt.Add(time.Hour) },
		"attribute":   func(e *DisasterEvent) { e.RawAttributes["population"] = "35000" },
		"nil geom":    func(e *DisasterEvent) { e.Geometry = nil },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			changed := fingerprintEvent()
			mutate(&changed)
			assert.NotEqual(t, base.Fingerprint(), changed.Fingerprint())
		})
	}
}

func TestFingerprint_AttributeOrderIndependent(t *testing.T) {
	a := fingerprintEvent()
	b := fingerprintEvent()
	b.RawAttributes = map[string]string{
		"population": "34000",
		"alertscore": "1.5",
		"country":    "Turkey",
	}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_PolygonGeometry(t *testing.T) {
	e := fingerprintEvent()
	e.Geometry = orb.Polygon{
		{{26.0, 37.0}, {28.0, 37.0}, {28.0, 39.0}, {26.0, 39.0}, {26.0, 37.0}},
	}

	first := e.Fingerprint()
	assert.Equal(t, first, e.Fingerprint())
	assert.NotEqual(t, fingerprintEvent().Fingerprint(), first)
}
