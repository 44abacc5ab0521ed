// Package retry wraps venue calls with a bounded retry policy and a
// pluggable fatal/benign error classifier.
package retry

import (
	"fmt"
	"time"

	"ordo/internal/logger"
	"ordo/internal/venue"
)

// Policy retries an operation up to Attempts times, sleeping Interval
// between tries. Classify decides per error:
//
//	transient -> sleep and retry, re-raise on the final attempt
//	fatal     -> re-raise immediately without consuming a retry
//	benign    -> stop silently with no result
type Policy struct {
	Attempts int
	Interval time.Duration
	Classify func(error) venue.ErrorClass

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// New builds a policy with the venue's classifier and rate-limit
// interval.
func New(attempts int, interval time.Duration, classify func(error) venue.ErrorClass) Policy {
	if attempts <= 0 {
		attempts = 5
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if classify == nil {
		classify = venue.ClassOf
	}
	return Policy{Attempts: attempts, Interval: interval, Classify: classify, sleep: time.Sleep}
}

// WithSleep returns a copy using fn instead of time.Sleep.
func (p Policy) WithSleep(fn func(time.Duration)) Policy {
	p.sleep = fn
	return p
}

// Do runs fn under the policy. The bool reports whether fn completed
// with a result: false with a nil error means a benign-stop error made
// the operation moot.
func (p Policy) Do(op string, fn func() error) (bool, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err := fn()
		if err == nil {
			return true, nil
		}
		switch p.Classify(err) {
		case venue.ClassFatal:
			return false, err
		case venue.ClassBenign:
			logger.Debugf("retry: %s aborted, operation moot: %v", op, err)
			return false, nil
		}
		lastErr = err
		if attempt == p.Attempts {
			break
		}
		logger.Debugf("retry: %s attempt %d/%d failed: %v", op, attempt, p.Attempts, err)
		sleep(p.Interval)
	}
	return false, fmt.Errorf("%s: %d attempts exhausted: %w", op, p.Attempts, lastErr)
}
