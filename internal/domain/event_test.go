package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceID(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		id       string
		expected string
	}{
		{"earthquake", "EQ", "1487904", "EQ1487904"},
		{"lowercase code", "eq", "1487904", "EQ1487904"},
		{"padded input", " TC ", " 1000889 ", "TC1000889"},
		{"missing code", "", "42", ""},
		{"missing id", "FL", "", ""},
		{"both missing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SourceID(tt.code, tt.id))
		})
	}
}

func TestEventTypeFromCode(t *testing.T) {
	tests := []struct {
		code     string
		expected string
	}{
		{"EQ", TypeEarthquake},
		{"eq", TypeEarthquake},
		{"TC", TypeCyclone},
		{"FL", TypeFlood},
		{"VO", TypeVolcano},
		{"WF", TypeWildfire},
		{"DR", TypeDrought},
		{"TS", TypeTsunami},
		{"XX", "xx"},
		{" Landslide ", "landslide"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, EventTypeFromCode(tt.code))
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityRank(SeverityGreen), SeverityRank(SeverityOrange))
	assert.Less(t, SeverityRank(SeverityOrange), SeverityRank(SeverityRed))
	assert.Equal(t, SeverityRank("ORANGE"), SeverityRank("orange"))

	// Unknown levels sort below everything upstream defines.
	assert.Less(t, SeverityRank("purple"), SeverityRank(SeverityGreen))
	assert.Less(t, SeverityRank(""), SeverityRank(SeverityGreen))
}
