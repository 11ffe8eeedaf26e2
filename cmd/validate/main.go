// Command validate checks a pair of downloaded GDACS feed documents without
// touching the database. It parses both files with the real adapter, runs
// reconciliation, and verifies every merged event would survive pre-write
// geometry validation, reporting per-phase results.
//
// Usage:
//
//	go run ./cmd/validate -geojson feed.geojson -xml feed.xml
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/gdacs"
	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
)

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	geojsonPath := flag.String("geojson", "", "path to a downloaded GeoJSON feed document")
	xmlPath := flag.String("xml", "", "path to a downloaded RSS XML feed document")
	flag.Parse()

	if *geojsonPath == "" || *xmlPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*geojsonPath, *xmlPath))
}

func run(geojsonPath, xmlPath string) int {
	fmt.Println("=== GDACS Feed Validation ===")
	fmt.Println()

	geojsonRaw, err := os.ReadFile(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read geojson document: %v\n", err)
		return 1
	}
	xmlRaw, err := os.ReadFile(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read xml document: %v\n", err)
		return 1
	}

	fetchedAt := time.Now().UTC()

	geoPhase, geoEvents := validateParse("Phase 1: GeoJSON document", geojsonRaw, fetchedAt, gdacs.ParseGeoJSON)
	xmlPhase, xmlEvents := validateParse("Phase 2: XML document", xmlRaw, fetchedAt, gdacs.ParseXML)

	merged := domain.Reconcile(geoEvents, xmlEvents)
	reconcilePhase := validateReconciliation(merged, geoEvents, xmlEvents)
	geometryPhase := validateGeometries(merged)

	phases := []*phase{geoPhase, xmlPhase, reconcilePhase, geometryPhase}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-38s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Events: %d geojson, %d xml, %d merged\n", len(geoEvents), len(xmlEvents), len(merged))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

type parseFunc func([]byte, time.Time) ([]domain.DisasterEvent, []domain.ParseWarning, error)

// validateParse runs one parser. A document-level ParseError fails the
// phase; per-record warnings are listed but only fail it when nothing at all
// parsed.
func validateParse(name string, raw []byte, fetchedAt time.Time, parse parseFunc) (*phase, []domain.DisasterEvent) {
	p := &phase{name: name}

	events, warnings, err := parse(raw, fetchedAt)
	if err != nil {
		p.errorf("%v", err)
		return p, nil
	}

	for _, w := range warnings {
		note := fmt.Sprintf("record %d skipped: %s", w.Index, w.Reason)
		if w.SourceID != "" {
			note = fmt.Sprintf("record %d (%s) skipped: %s", w.Index, w.SourceID, w.Reason)
		}
		if len(events) == 0 {
			p.errors = append(p.errors, note)
		} else {
			fmt.Printf("  Note: %s: %s\n", name, note)
		}
	}

	return p, events
}

func validateReconciliation(merged, geoEvents, xmlEvents []domain.DisasterEvent) *phase {
	p := &phase{name: "Phase 3: Reconciliation"}

	geoIDs := make(map[string]bool, len(geoEvents))
	for _, e := range geoEvents {
		geoIDs[e.SourceID] = true
	}
	xmlIDs := make(map[string]bool, len(xmlEvents))
	for _, e := range xmlEvents {
		xmlIDs[e.SourceID] = true
	}

	seen := make(map[string]bool, len(merged))
	var both, geoOnly, xmlOnly int
	for _, e := range merged {
		if seen[e.SourceID] {
			p.errorf("duplicate source id %s in merged set", e.SourceID)
		}
		seen[e.SourceID] = true

		switch {
		case geoIDs[e.SourceID] && xmlIDs[e.SourceID]:
			both++
		case geoIDs[e.SourceID]:
			geoOnly++
		case xmlIDs[e.SourceID]:
			xmlOnly++
		default:
			p.errorf("merged event %s came from neither source", e.SourceID)
		}
	}

	for id := range geoIDs {
		if !seen[id] {
			p.errorf("geojson event %s missing from merged set", id)
		}
	}
	for id := range xmlIDs {
		if !seen[id] {
			p.errorf("xml event %s missing from merged set", id)
		}
	}

	fmt.Printf("  Note: merged composition: both=%d, geojson-only=%d, xml-only=%d\n", both, geoOnly, xmlOnly)
	return p
}

// validateGeometries applies the same checks the store runs before writing.
func validateGeometries(merged []domain.DisasterEvent) *phase {
	p := &phase{name: "Phase 4: Pre-write geometry"}
	for _, e := range merged {
		if err := domain.ValidateGeometry(e.Geometry); err != nil {
			p.errorf("%s: %v", e.SourceID, err)
		}
	}
	return p
}
