package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ordo/internal/venue"
)

func classified(class venue.ErrorClass) error {
	return &venue.Error{Venue: "fakex", Code: 1, Msg: "boom", Class: class}
}

func TestDoSucceedsFirstTry(t *testing.T) {
	p := New(3, time.Millisecond, nil).WithSleep(func(time.Duration) {})
	calls := 0
	ok, err := p.Do("op", func() error {
		calls++
		return nil
	})
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransient(t *testing.T) {
	slept := 0
	p := New(3, time.Millisecond, nil).WithSleep(func(time.Duration) { slept++ })
	calls := 0
	ok, err := p.Do("op", func() error {
		calls++
		if calls < 3 {
			return classified(venue.ClassTransient)
		}
		return nil
	})
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, slept)
}

func TestDoFatalRaisesImmediately(t *testing.T) {
	slept := 0
	p := New(5, time.Millisecond, nil).WithSleep(func(time.Duration) { slept++ })
	calls := 0
	fatal := classified(venue.ClassFatal)
	ok, err := p.Do("op", func() error {
		calls++
		return fatal
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, slept)
}

func TestDoBenignStopsSilently(t *testing.T) {
	p := New(5, time.Millisecond, nil).WithSleep(func(time.Duration) {})
	calls := 0
	ok, err := p.Do("op", func() error {
		calls++
		return classified(venue.ClassBenign)
	})
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustionWrapsLastError(t *testing.T) {
	slept := 0
	p := New(3, time.Millisecond, nil).WithSleep(func(time.Duration) { slept++ })
	calls := 0
	last := errors.New("still down")
	ok, err := p.Do("op", func() error {
		calls++
		return last
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "3 attempts exhausted")
	assert.Equal(t, 3, calls)
	// no sleep after the final attempt
	assert.Equal(t, 2, slept)
}

func TestDoCustomClassifier(t *testing.T) {
	sentinel := errors.New("not ready")
	p := New(3, time.Millisecond, func(err error) venue.ErrorClass {
		if errors.Is(err, sentinel) {
			return venue.ClassBenign
		}
		return venue.ClassTransient
	}).WithSleep(func(time.Duration) {})
	ok, err := p.Do("op", func() error { return sentinel })
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestNewClampsDefaults(t *testing.T) {
	p := New(0, 0, nil)
	assert.Equal(t, 5, p.Attempts)
	assert.Equal(t, 500*time.Millisecond, p.Interval)
	assert.NotNil(t, p.Classify)
}
