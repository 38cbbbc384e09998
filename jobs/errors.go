package jobs

import "errors"

// Error taxonomy of the job layer. Decode errors are produced per job with
// the offending field wrapped in.
var (
	// ErrUnknownJobType - the payload names a job type with no dispatch entry
	ErrUnknownJobType = errors.New("unknown job type")
	// ErrInvalidAmount - a requested or computed amount is outside the limits
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNotFound - the referenced payment does not exist or has the wrong kind
	ErrNotFound = errors.New("not found")
)
