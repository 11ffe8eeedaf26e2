// Command genmock writes a matched pair of GDACS feed fixtures, one GeoJSON
// document and one RSS XML document describing the same disaster events, for
// parser and pipeline tests. It re-parses its own output with the actual
// adapter package so the fixtures are guaranteed to round-trip.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir internal/adapter/gdacs/testdata \
//	  -events 25 -seed 1
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/gdacs"
	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var baseDate = time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC)

var (
	eventCodes = []string{"EQ", "TC", "FL", "VO", "WF", "DR", "TS"}
	alertPool  = []string{"Green", "Green", "Green", "Orange", "Red"}
	countries  = []string{"Indonesia", "Philippines", "Chile", "Turkey", "Japan", "Mozambique", "Greece", "Peru"}
)

// mockEvent is the generator's intermediate record; the renderers project it
// into each feed format.
type mockEvent struct {
	Code      string
	ID        string
	Alert     string
	Lat       float64
	Lon       float64
	Country   string
	FromDate  time.Time
	InGeoJSON bool
	InXML     bool
	XMLPoint  bool // whether the XML item carries georss:point
	Polygon   bool // whether the GeoJSON side uses a polygon footprint
}

func (e mockEvent) title() string {
	return fmt.Sprintf("%s alert: %s event in %s", e.Alert, e.Code, e.Country)
}

func (e mockEvent) sourceID() string {
	return domain.SourceID(e.Code, e.ID)
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for the generated fixture files")
	count := flag.Int("events", 25, "number of events to generate")
	seed := flag.Int64("seed", 1, "PRNG seed; the same seed always yields the same fixtures")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	// Fixed clock so ingestion timestamps in the self-check are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))
	events := generateEvents(rng, *count)

	geojsonDoc, err := renderGeoJSON(events)
	if err != nil {
		return fmt.Errorf("rendering geojson: %w", err)
	}
	xmlDoc := renderXML(events)

	geojsonPath := filepath.Join(*outDir, "gdacs_feed.geojson")
	xmlPath := filepath.Join(*outDir, "gdacs_feed.xml")

	if err := writeFile(geojsonPath, geojsonDoc); err != nil {
		return fmt.Errorf("writing geojson fixture: %w", err)
	}
	log.Printf("wrote geojson fixture: %s", geojsonPath)

	if err := writeFile(xmlPath, xmlDoc); err != nil {
		return fmt.Errorf("writing xml fixture: %w", err)
	}
	log.Printf("wrote xml fixture: %s", xmlPath)

	merged, err := selfCheck(geojsonDoc, xmlDoc, events)
	if err != nil {
		return fmt.Errorf("self-check: %w", err)
	}

	printStats(events, merged)
	return nil
}

func generateEvents(rng *rand.Rand, count int) []mockEvent {
	events := make([]mockEvent, 0, count)
	for i := 0; i < count; i++ {
		code := eventCodes[rng.Intn(len(eventCodes))]
		e := mockEvent{
			Code:      code,
			ID:        fmt.Sprintf("%d", 1000000+i),
			Alert:     alertPool[rng.Intn(len(alertPool))],
			Lat:       -60 + rng.Float64()*130,
			Lon:       -180 + rng.Float64()*360,
			Country:   countries[rng.Intn(len(countries))],
			FromDate:  baseDate.AddDate(0, 0, -(i + 1)),
			InGeoJSON: i%5 != 4, // every 5th event is XML-only
			InXML:     i%7 != 6, // every 7th event is GeoJSON-only
			Polygon:   code == "TC" || code == "DR",
		}
		if !e.InGeoJSON && !e.InXML {
			e.InXML = true
		}
		// Some XML items rely on the GeoJSON side for geometry, but an
		// XML-only event must carry its own point or it would never survive
		// pre-write validation.
		e.XMLPoint = !e.InGeoJSON || i%4 != 3
		events = append(events, e)
	}
	return events
}

func renderGeoJSON(events []mockEvent) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, e := range events {
		if !e.InGeoJSON {
			continue
		}

		var f *geojson.Feature
		if e.Polygon {
			f = geojson.NewFeature(boxAround(e.Lon, e.Lat, 1.5))
		} else {
			f = geojson.NewFeature(orb.Point{e.Lon, e.Lat})
		}
		f.Properties = geojson.Properties{
			"eventtype":  e.Code,
			"eventid":    e.ID,
			"alertlevel": e.Alert,
			"fromdate":   e.FromDate.Format("2006-01-02T15:04:05"),
			"country":    e.Country,
			"name":       e.title(),
		}
		fc.Append(f)
	}
	return json.MarshalIndent(fc, "", "  ")
}

func renderXML(events []mockEvent) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<rss version="2.0" xmlns:gdacs="http://www.gdacs.org" xmlns:georss="http://www.georss.org/georss" xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	b.WriteString("  <channel>\n")
	b.WriteString("    <title>GDACS RSS information</title>\n")
	b.WriteString("    <link>https://www.gdacs.org</link>\n")

	for _, e := range events {
		if !e.InXML {
			continue
		}
		b.WriteString("    <item>\n")
		fmt.Fprintf(&b, "      <title>%s</title>\n", e.title())
		fmt.Fprintf(&b, "      <link>https://www.gdacs.org/report.aspx?eventtype=%s&amp;eventid=%s</link>\n", e.Code, e.ID)
		fmt.Fprintf(&b, "      <pubDate>%s</pubDate>\n", e.FromDate.Format(time.RFC1123))
		fmt.Fprintf(&b, "      <gdacs:eventtype>%s</gdacs:eventtype>\n", e.Code)
		fmt.Fprintf(&b, "      <gdacs:eventid>%s</gdacs:eventid>\n", e.ID)
		fmt.Fprintf(&b, "      <gdacs:episodeid>%s1</gdacs:episodeid>\n", e.ID)
		fmt.Fprintf(&b, "      <gdacs:alertlevel>%s</gdacs:alertlevel>\n", e.Alert)
		fmt.Fprintf(&b, "      <gdacs:country>%s</gdacs:country>\n", e.Country)
		fmt.Fprintf(&b, "      <gdacs:fromdate>%s</gdacs:fromdate>\n", e.FromDate.Format(time.RFC1123))
		b.WriteString("      <gdacs:iscurrent>true</gdacs:iscurrent>\n")
		if e.XMLPoint {
			fmt.Fprintf(&b, "      <georss:point>%g %g</georss:point>\n", e.Lat, e.Lon)
		}
		b.WriteString("    </item>\n")
	}

	b.WriteString("  </channel>\n")
	b.WriteString("</rss>\n")
	return []byte(b.String())
}

// boxAround builds a closed square ring centered on (lon, lat).
func boxAround(lon, lat, half float64) orb.Polygon {
	return orb.Polygon{{
		{lon - half, lat - half},
		{lon + half, lat - half},
		{lon + half, lat + half},
		{lon - half, lat + half},
		{lon - half, lat - half},
	}}
}

// selfCheck runs the generated documents through the real parsers and
// reconciliation, and fails on anything a clean fixture must not produce.
func selfCheck(geojsonDoc, xmlDoc []byte, events []mockEvent) ([]domain.DisasterEvent, error) {
	fetchedAt := domain.Now()

	geoEvents, geoWarnings, err := gdacs.ParseGeoJSON(geojsonDoc, fetchedAt)
	if err != nil {
		return nil, err
	}
	if len(geoWarnings) > 0 {
		return nil, fmt.Errorf("geojson fixture produced %d parse warnings", len(geoWarnings))
	}

	xmlEvents, xmlWarnings, err := gdacs.ParseXML(xmlDoc, fetchedAt)
	if err != nil {
		return nil, err
	}
	if len(xmlWarnings) > 0 {
		return nil, fmt.Errorf("xml fixture produced %d parse warnings", len(xmlWarnings))
	}

	merged := domain.Reconcile(geoEvents, xmlEvents)
	if len(merged) != len(events) {
		return nil, fmt.Errorf("reconciled %d events, generated %d", len(merged), len(events))
	}

	for _, e := range merged {
		if err := domain.ValidateGeometry(e.Geometry); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.SourceID, err)
		}
	}

	return merged, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printStats(events []mockEvent, merged []domain.DisasterEvent) {
	var xmlOnly, geoOnly, both, pointless int
	typeCounts := map[string]int{}
	severityCounts := map[string]int{}

	for _, e := range events {
		switch {
		case e.InGeoJSON && e.InXML:
			both++
		case e.InXML:
			xmlOnly++
		default:
			geoOnly++
		}
		if e.InXML && !e.XMLPoint {
			pointless++
		}
	}
	for _, e := range merged {
		typeCounts[e.EventType]++
		severityCounts[e.Severity]++
	}

	fmt.Println("\n=== Fixture stats for test assertions ===")
	fmt.Printf("Total: %d (both=%d, xml-only=%d, geojson-only=%d)\n", len(events), both, xmlOnly, geoOnly)
	fmt.Printf("XML items without georss:point: %d\n", pointless)
	fmt.Printf("By severity: green=%d, orange=%d, red=%d\n",
		severityCounts[domain.SeverityGreen], severityCounts[domain.SeverityOrange], severityCounts[domain.SeverityRed])

	fmt.Printf("By type:")
	for _, code := range eventCodes {
		name := domain.EventTypeFromCode(code)
		if n := typeCounts[name]; n > 0 {
			fmt.Printf(" %s=%d", name, n)
		}
	}
	fmt.Println()
}
