package synth

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedStream = errors.New("malformed event stream")
	ErrInvalidDuration = errors.New("invalid duration")
)

// MalformedStreamError is returned when an event moves the clock backwards
type MalformedStreamError struct {
	Index int     // position of the offending event
	Delta float64 // its elapsed time
}

func (e *MalformedStreamError) Error() string {
	return fmt.Sprintf("malformed event stream: event %d has elapsed time %gs", e.Index, e.Delta)
}

func (e *MalformedStreamError) Unwrap() error { return ErrMalformedStream }

// InvalidDurationError is returned when a timeline cannot be rendered
type InvalidDurationError struct {
	Duration float64
	Length   int // computed buffer length
	Notes    int
	TooLong  bool // more than MaxSamples
}

func (e *InvalidDurationError) Error() string {
	if e.TooLong {
		return fmt.Sprintf("invalid duration: %gs exceeds %d samples", e.Duration, int64(MaxSamples))
	}
	if e.Length == 0 && e.Notes > 0 {
		return fmt.Sprintf("invalid duration: %gs is too short to hold %d notes", e.Duration, e.Notes)
	}
	return fmt.Sprintf("invalid duration: %gs", e.Duration)
}

func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }
