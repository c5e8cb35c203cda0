package synth

import (
	"maps"
	"slices"

	"midi-synth/midi"
)

// Interval is a closed note: pitch sounding from Start to End seconds
type Interval struct {
	Pitch    int
	Start    float64
	End      float64
	Velocity int // captured at onset
}

// Timeline is the normalized form of an event stream
type Timeline struct {
	Intervals []Interval // in order of resolution
	Duration  float64    // sum of all deltas
}

// Irregularity is an input defect the normalizer absorbs
type Irregularity int

const (
	OrphanRelease     Irregularity = iota // note-off with no open onset
	OverwrittenOnset                      // note-on for a pitch already open
	UnterminatedOnset                     // onset still open at stream end
)

func (i Irregularity) String() string {
	switch i {
	case OrphanRelease:
		return "orphan release"
	case OverwrittenOnset:
		return "overwritten onset"
	case UnterminatedOnset:
		return "unterminated onset"
	default:
		return "unknown"
	}
}

// Options tune normalization. The zero value is the default policy.
type Options struct {
	// CloseOpenOnsets ends onsets left open at stream end at the total
	// duration instead of dropping them.
	CloseOpenOnsets bool

	// Observer, if set, is told about every absorbed irregularity.
	Observer func(kind Irregularity, pitch int, at float64)
}

type onset struct {
	at       float64
	velocity int
}

// Normalize pairs onsets and releases into intervals. The last onset before a
// release wins, orphan releases are ignored and unterminated onsets dropped.
func Normalize(events []midi.Event) (Timeline, error) {
	return NormalizeWith(events, Options{})
}

// NormalizeWith is Normalize with explicit options
func NormalizeWith(events []midi.Event, opts Options) (Timeline, error) {
	notify := opts.Observer
	if notify == nil {
		notify = func(Irregularity, int, float64) {}
	}

	open := make(map[int]onset)
	var out []Interval
	var secs float64

	for i, ev := range events {
		// also rejects NaN
		if !(ev.Delta >= 0) {
			return Timeline{}, &MalformedStreamError{Index: i, Delta: ev.Delta}
		}
		secs += ev.Delta

		if ev.IsOnset() {
			if _, ok := open[ev.Pitch]; ok {
				notify(OverwrittenOnset, ev.Pitch, secs)
			}
			open[ev.Pitch] = onset{at: secs, velocity: ev.Velocity}
			continue
		}

		on, ok := open[ev.Pitch]
		if !ok {
			notify(OrphanRelease, ev.Pitch, secs)
			continue
		}
		delete(open, ev.Pitch)
		out = append(out, Interval{Pitch: ev.Pitch, Start: on.at, End: secs, Velocity: on.velocity})
	}

	for _, pitch := range slices.Sorted(maps.Keys(open)) {
		on := open[pitch]
		notify(UnterminatedOnset, pitch, on.at)
		if opts.CloseOpenOnsets && on.at < secs {
			out = append(out, Interval{Pitch: pitch, Start: on.at, End: secs, Velocity: on.velocity})
		}
	}

	return Timeline{Intervals: out, Duration: secs}, nil
}
