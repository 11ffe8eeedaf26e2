package gdacs

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/paulmach/orb"
)

// rssItem mirrors one <item> of the GDACS RSS document. The unqualified tag
// names match the gdacs:, georss:, and dc: extension tags by local name,
// which is how encoding/xml resolves namespaced elements.
type rssItem struct {
	Title             string      `xml:"title"`
	Description       string      `xml:"description"`
	Link              string      `xml:"link"`
	PubDate           string      `xml:"pubDate"`
	GUID              string      `xml:"guid"`
	Subject           string      `xml:"subject"`
	EventType         string      `xml:"eventtype"`
	EventID           string      `xml:"eventid"`
	EpisodeID         string      `xml:"episodeid"`
	AlertLevel        string      `xml:"alertlevel"`
	AlertScore        string      `xml:"alertscore"`
	EpisodeAlertLevel string      `xml:"episodealertlevel"`
	EpisodeAlertScore string      `xml:"episodealertscore"`
	Severity          measuredTag `xml:"severity"`
	Population        measuredTag `xml:"population"`
	Vulnerability     string      `xml:"vulnerability"`
	Country           string      `xml:"country"`
	FromDate          string      `xml:"fromdate"`
	ToDate            string      `xml:"todate"`
	DateAdded         string      `xml:"dateadded"`
	DateModified      string      `xml:"datemodified"`
	IsCurrent         string      `xml:"iscurrent"`
	DurationWeeks     string      `xml:"durationinweek"`
	Year              string      `xml:"year"`
	BBox              string      `xml:"bbox"`
	Point             string      `xml:"point"`
	CalculationType   string      `xml:"calculationtype"`
}

// measuredTag covers the gdacs tags that carry unit/value attributes plus a
// human-readable text body, e.g. <gdacs:severity unit="M" value="6.1">.
type measuredTag struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:"value,attr"`
	Text  string `xml:",chardata"`
}

// ParseXML decodes the GDACS RSS document into canonical events. Items are
// decoded one element at a time so a single malformed item skips with a
// warning instead of failing the document. The source id is the only
// per-item mandatory field; georss:point is optional because reconciliation
// can supply geometry from the GeoJSON side, and events still geometry-less
// at write time are dropped by pre-write validation.
func ParseXML(raw []byte, fetchedAt time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil, &domain.ParseError{Source: domain.SourceXML, Reason: "empty payload"}
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))

	var events []domain.DisasterEvent
	var warnings []domain.ParseWarning
	index := -1
	rootSeen := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &domain.ParseError{
				Source: domain.SourceXML,
				Reason: fmt.Sprintf("decode document: %v", err),
			}
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			if start.Name.Local != "rss" {
				return nil, nil, &domain.ParseError{
					Source: domain.SourceXML,
					Reason: fmt.Sprintf("unexpected root element <%s>", start.Name.Local),
				}
			}
			continue
		}
		if start.Name.Local != "item" {
			continue
		}

		index++
		var item rssItem
		if err := dec.DecodeElement(&item, &start); err != nil {
			warnings = append(warnings, xmlWarning(index, "", fmt.Sprintf("decode item: %v", err)))
			continue
		}

		id := domain.SourceID(item.EventType, item.EventID)
		if id == "" {
			warnings = append(warnings, xmlWarning(index, "", "missing eventtype or eventid"))
			continue
		}

		event := domain.DisasterEvent{
			SourceID:      id,
			EventType:     domain.EventTypeFromCode(item.EventType),
			Severity:      strings.ToLower(strings.TrimSpace(item.AlertLevel)),
			OccurredAt:    firstFeedTime(item.FromDate, item.PubDate),
			RawAttributes: item.attributes(),
			FetchedAt:     fetchedAt,
		}

		if strings.TrimSpace(item.Point) != "" {
			if pt, ok := parseGeoRSSPoint(item.Point); ok {
				event.Geometry = pt
			} else {
				warnings = append(warnings, xmlWarning(index, id, fmt.Sprintf("unparseable georss:point %q", item.Point)))
			}
		}

		events = append(events, event)
	}

	if !rootSeen {
		return nil, nil, &domain.ParseError{Source: domain.SourceXML, Reason: "no xml content"}
	}

	return events, warnings, nil
}

func xmlWarning(index int, sourceID, reason string) domain.ParseWarning {
	return domain.ParseWarning{
		Source:   domain.SourceXML,
		Index:    index,
		SourceID: sourceID,
		Reason:   reason,
	}
}

// parseGeoRSSPoint reads a georss:point value, which is "lat lon", the
// reverse of GeoJSON coordinate order.
func parseGeoRSSPoint(s string) (orb.Point, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return orb.Point{}, false
	}
	lat, latErr := strconv.ParseFloat(fields[0], 64)
	lon, lonErr := strconv.ParseFloat(fields[1], 64)
	if latErr != nil || lonErr != nil {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// attributes collects the passthrough tags; empty ones are omitted.
func (it rssItem) attributes() map[string]string {
	attrs := make(map[string]string)
	put := func(k, v string) {
		if v = strings.TrimSpace(v); v != "" {
			attrs[k] = v
		}
	}

	put("title", it.Title)
	put("description", it.Description)
	put("link", it.Link)
	put("guid", it.GUID)
	put("subject", it.Subject)
	put("episodeid", it.EpisodeID)
	put("alertscore", it.AlertScore)
	put("episodealertlevel", it.EpisodeAlertLevel)
	put("episodealertscore", it.EpisodeAlertScore)
	put("severity", it.Severity.Text)
	put("severityunit", it.Severity.Unit)
	put("severityvalue", it.Severity.Value)
	put("population", it.Population.Text)
	put("populationunit", it.Population.Unit)
	put("populationvalue", it.Population.Value)
	put("vulnerability", it.Vulnerability)
	put("country", it.Country)
	put("todate", it.ToDate)
	put("dateadded", it.DateAdded)
	put("datemodified", it.DateModified)
	put("iscurrent", it.IsCurrent)
	put("durationinweek", it.DurationWeeks)
	put("year", it.Year)
	put("bbox", it.BBox)
	put("calculationtype", it.CalculationType)

	if len(attrs) == 0 {
		return nil
	}
	return attrs
}
