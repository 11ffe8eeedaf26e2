package domain

// Reconcile merges the two parsed feed views into one canonical set with at
// most one event per SourceID. Records present in only one source pass
// through unchanged. Records present in both merge per mergeEvent. Ordering
// of the result is unspecified.
//
// Duplicate ids within a single source keep the last record of that source,
// so the cross-source merge always sees one candidate per side.
func Reconcile(geojsonEvents, xmlEvents []DisasterEvent) []DisasterEvent {
	xmlByID := make(map[string]DisasterEvent, len(xmlEvents))
	for _, e := range xmlEvents {
		xmlByID[e.SourceID] = e
	}
	geoByID := make(map[string]DisasterEvent, len(geojsonEvents))
	for _, e := range geojsonEvents {
		geoByID[e.SourceID] = e
	}

	out := make([]DisasterEvent, 0, len(xmlByID)+len(geoByID))
	for id, x := range xmlByID {
		if g, ok := geoByID[id]; ok {
			out = append(out, mergeEvent(x, g))
			delete(geoByID, id)
			continue
		}
		out = append(out, x)
	}
	for _, g := range geoByID {
		out = append(out, g)
	}
	return out
}

// mergeEvent combines the XML and GeoJSON views of one event. The XML record
// is the base and wins every non-empty scalar conflict; absent fields fill
// from the GeoJSON side. Geometry always comes from the GeoJSON record when
// it has one, since that feed is the authoritative spatial source. Changing
// this precedence changes fingerprints and rewrites every stored row, so
// treat it as part of the storage contract.
func mergeEvent(xmlEvent, geojsonEvent DisasterEvent) DisasterEvent {
	out := xmlEvent

	if out.EventType == "" {
		out.EventType = geojsonEvent.EventType
	}
	if out.Severity == "" {
		out.Severity = geojsonEvent.Severity
	}
	if geojsonEvent.Geometry != nil {
		out.Geometry = geojsonEvent.Geometry
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = geojsonEvent.OccurredAt
	}
	if out.FetchedAt.IsZero() {
		out.FetchedAt = geojsonEvent.FetchedAt
	}

	if len(geojsonEvent.RawAttributes) > 0 {
		attrs := make(map[string]string, len(geojsonEvent.RawAttributes)+len(out.RawAttributes))
		for k, v := range geojsonEvent.RawAttributes {
			attrs[k] = v
		}
		for k, v := range out.RawAttributes {
			attrs[k] = v
		}
		out.RawAttributes = attrs
	}
	return out
}
