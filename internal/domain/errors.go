package domain

import "fmt"

// FetchError reports a failure retrieving an upstream payload: transport
// errors, non-2xx responses, browser automation failures, and timeouts.
// Retryable on the next cycle.
type FetchError struct {
	Source string // SourceGeoJSON or SourceXML
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Source, e.Reason)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a whole-document defect: an empty payload or a document
// the decoder cannot read at all. Fails the cycle; single bad records are
// ParseWarnings instead.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

// ValidationError reports one event failing pre-write validation. The event
// is excluded from the write set and surfaces in SyncResult.Failed; the rest
// of the batch still commits.
type ValidationError struct {
	SourceID string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %s", e.SourceID, e.Reason)
}

// StorageError reports a transaction-level store failure. The transaction
// rolls back entirely and the cycle is failed with zero persisted changes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
