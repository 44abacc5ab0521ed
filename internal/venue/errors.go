package venue

import (
	"errors"
	"fmt"
)

// ErrorClass sorts venue call failures for the retry wrapper.
type ErrorClass int

const (
	// ClassTransient errors are retried after the venue rate-limit
	// pause, up to the attempt budget.
	ClassTransient ErrorClass = iota
	// ClassFatal errors surface immediately without consuming a retry
	// (misconfiguration signals such as a trigger price outside
	// bounds).
	ClassFatal
	// ClassBenign errors make the operation moot ("position already
	// zero", "order too old to modify"); the retry loop stops silently
	// with no result.
	ClassBenign
)

func (c ErrorClass) String() string {
	switch c {
	case ClassFatal:
		return "fatal"
	case ClassBenign:
		return "benign"
	default:
		return "transient"
	}
}

// ErrNotVisible marks an order id the venue cannot see yet. Venues
// process order creation asynchronously, so a just-created id may not
// be queryable for a few hundred milliseconds. Callers treat this as
// transient, never terminal.
var ErrNotVisible = errors.New("venue: order not yet visible")

// Error is a classified venue API failure.
type Error struct {
	Venue string
	Code  int64
	Label string
	Msg   string
	Class ErrorClass
}

func (e *Error) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s: %s (%s): %s", e.Venue, e.Label, e.Class, e.Msg)
	}
	return fmt.Sprintf("%s: code=%d (%s): %s", e.Venue, e.Code, e.Class, e.Msg)
}

// ClassOf extracts the class of an error, defaulting to transient: an
// unknown failure is assumed recoverable and bounded by the attempt
// budget.
func ClassOf(err error) ErrorClass {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Class
	}
	return ClassTransient
}
