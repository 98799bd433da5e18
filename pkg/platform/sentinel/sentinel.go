package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can decide between failing and degrading.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable = errors.New("unavailable")
)
