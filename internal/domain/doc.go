// Package domain models disaster events published by the GDACS alert feed.
//
// # Data Source
//
// Events originate from the Global Disaster Alert and Coordination System
// (GDACS, https://www.gdacs.org), which publishes the same underlying event
// list in two formats: an RSS/XML document carrying gdacs:, georss:, and dc:
// extension tags, and a GeoJSON FeatureCollection served by a client-rendered
// endpoint. Neither format is complete on its own. The XML side is richer in
// temporal and episode fields; the GeoJSON side carries the authoritative
// geometry.
//
// # Source Identity
//
// Both formats carry the upstream identity pair (event type code, event id).
// [SourceID] concatenates them, e.g. type "EQ" with id "1487904" becomes
// "EQ1487904". Both parsers derive ids through the same helper so the two
// representations of one real-world event always collide in the reconciler.
//
// # Event Types
//
// GDACS uses two-letter codes for event categories:
//
//	EQ earthquake | TC cyclone | FL flood | VO volcano
//	WF wildfire   | DR drought | TS tsunami
//
// [EventTypeFromCode] maps codes to the long names above. Unknown codes pass
// through lower-cased rather than failing the record, since upstream adds
// categories without notice.
//
// # Alert Levels
//
// Severity carries the GDACS alert level: "green", "orange", or "red" in
// ascending order. [SeverityRank] defines the ordering; unknown values rank
// below green.
//
// # Geometry Conventions
//
// georss:point in the XML feed is "lat lon" (latitude first). GeoJSON
// coordinates are [lon, lat]. Both normalize to orb geometries in WGS-84.
// An event may leave its parser without geometry (XML items often omit
// georss:point); it must gain one during reconciliation or it is dropped at
// pre-write validation. Persisted rows never have null geometry.
//
// # Fingerprints
//
// Change detection hashes every mutable field except FetchedAt into a
// SHA-256 fingerprint (see [DisasterEvent.Fingerprint]). The store keeps the
// fingerprint alongside each row, so the next cycle can decide insert,
// update, or skip without comparing full rows.
package domain
