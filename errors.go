package srcview

import "errors"

// Sentinel errors for archive operations.
var (
	// ErrNotFound is returned when a requested member is not in the archive,
	// or the extraction pipeline produced nothing for it.
	ErrNotFound = errors.New("srcview: member not found")

	// ErrInvalidPath is returned when a member path is empty, names a
	// directory, or contains "." or ".." elements.
	ErrInvalidPath = errors.New("srcview: invalid member path")

	// ErrNoSource is returned when an Archive is created without a Source.
	ErrNoSource = errors.New("srcview: no archive source")
)
