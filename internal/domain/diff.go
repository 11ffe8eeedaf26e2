package domain

// Diff partitions a canonical event set against the persisted fingerprint
// index: events to insert, events to update, and a count left untouched.
type Diff struct {
	ToInsert  []DisasterEvent
	ToUpdate  []DisasterEvent
	Unchanged int
}

// Empty reports whether the diff carries no work for the writer.
func (d Diff) Empty() bool {
	return len(d.ToInsert) == 0 && len(d.ToUpdate) == 0
}

// ComputeDiff compares events against persisted, a SourceID to stored
// fingerprint index loaded fresh from the store each cycle. An event whose
// id is absent is an insert; present with a differing fingerprint, an
// update; otherwise unchanged. Writer work stays proportional to actual
// upstream change, not feed size.
func ComputeDiff(events []DisasterEvent, persisted map[string]string) Diff {
	var d Diff
	for _, e := range events {
		stored, ok := persisted[e.SourceID]
		switch {
		case !ok:
			d.ToInsert = append(d.ToInsert, e)
		case stored != e.Fingerprint():
			d.ToUpdate = append(d.ToUpdate, e)
		default:
			d.Unchanged++
		}
	}
	return d
}
