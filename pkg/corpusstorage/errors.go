package corpusstorage

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by CorpusStorage, mirroring graphdb's own
// sentinel-error-per-failure-kind block (pkg/graphdb/errors.go) rather than
// bespoke error types.
var (
	ErrCorpusNotFound = errors.New("corpusstorage: corpus not found")
	ErrIO             = errors.New("corpusstorage: I/O failure")
)

// ImpossibleSearchError reports that every alternative of a disjunction
// failed to plan, carrying each alternative's individual
// failure reason.
type ImpossibleSearchError struct {
	Reasons []error
}

func (e *ImpossibleSearchError) Error() string {
	return fmt.Sprintf("corpusstorage: impossible search: all %d alternative(s) failed to plan", len(e.Reasons))
}

// Unwrap exposes every per-alternative reason to errors.Is/As.
func (e *ImpossibleSearchError) Unwrap() []error { return e.Reasons }
