package graphdb

import "errors"

// Sentinel errors returned by GraphDB load/save operations, mirroring the
// teacher's "Common errors" sentinel block (pkg/storage/types.go) rather
// than bespoke error types per failure.
var (
	ErrComponentNotFound  = errors.New("graphdb: component not found on disk")
	ErrManifestUnreadable = errors.New("graphdb: component manifest unreadable or inconsistent")
	ErrUnknownStorageKind = errors.New("graphdb: unknown storage kind in manifest")
)
