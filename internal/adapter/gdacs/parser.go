package gdacs

import (
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
)

// Parser bundles the two feed parsers behind one value.
type Parser struct{}

func (Parser) ParseGeoJSON(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error) {
	return ParseGeoJSON(raw, fetchedAt)
}

func (Parser) ParseXML(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error) {
	return ParseXML(raw, fetchedAt)
}
