package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned (wrapped) when an id is absent from its collection.
var ErrNotFound = errors.New("not found")

// ValidationError lists the fields of a draft that failed validation, keyed
// by JSON field path, with the rule that failed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// StorageReadError reports that a collection could not be read or decoded.
// Callers rendering lists treat it as "no data".
type StorageReadError struct {
	Collection string
	Err        error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("failed to read collection %q: %v", e.Collection, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// StorageWriteError reports that a collection was not persisted. The caller
// must not assume its change is committed.
type StorageWriteError struct {
	Collection string
	Err        error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to write collection %q: %v", e.Collection, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// PartialFailure is returned by a site cascade delete when the site was
// removed but its inspections were not. The remaining inspections are orphans.
type PartialFailure struct {
	SiteID string
	Err    error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("site %s deleted but its inspections were not removed: %v", e.SiteID, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
