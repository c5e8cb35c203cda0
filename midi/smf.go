package midi

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Encoding used by Write: 960 ticks per quarter at 120 BPM, so one second
// is 1920 ticks.
const (
	writeTicks     = 960
	writeBPM       = 120.0
	ticksPerSecond = writeTicks * writeBPM / 60
)

var (
	// ErrInputNotFound is matched by InputNotFoundError
	ErrInputNotFound = errors.New("input not found")

	// ErrMalformedFile wraps every SMF decoding failure
	ErrMalformedFile = errors.New("malformed MIDI file")
)

// InputNotFoundError reports a missing symbolic-music source
type InputNotFoundError struct {
	Path string
}

func (e *InputNotFoundError) Error() string {
	return fmt.Sprintf("provided input file %s does not exist", e.Path)
}

func (e *InputNotFoundError) Unwrap() error { return ErrInputNotFound }

// CheckInput fails with InputNotFoundError if path does not exist
func CheckInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &InputNotFoundError{Path: path}
		}
		return fmt.Errorf("stat input: %w", err)
	}
	return nil
}

// ReadFile decodes the note events of a Standard MIDI File
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InputNotFoundError{Path: path}
		}
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes an SMF from rd. All tracks are merged into one stream ordered
// by absolute time (tempo map applied). Only note messages are kept; each
// event's Delta is measured from the previous kept event.
func Read(rd io.Reader) ([]Event, error) {
	type timed struct {
		at    int64 // microseconds
		event Event
	}
	var all []timed

	tr := smf.ReadTracksFrom(rd).Do(func(te smf.TrackEvent) {
		msg := gomidi.Message(te.Message)
		var channel, key, velocity uint8
		switch {
		case msg.GetNoteStart(&channel, &key, &velocity):
			ev := On(int(key), int(velocity), 0)
			ev.Channel = channel
			all = append(all, timed{at: te.AbsMicroSeconds, event: ev})
		case msg.GetNoteEnd(&channel, &key):
			// release velocity, when the message carries one
			msg.GetNoteOff(&channel, &key, &velocity)
			ev := Off(int(key), int(velocity), 0)
			ev.Channel = channel
			all = append(all, timed{at: te.AbsMicroSeconds, event: ev})
		}
	})
	if err := tr.Error(); err != nil {
		return nil, fmt.Errorf("midi: read smf: %w: %w", ErrMalformedFile, err)
	}

	// Tracks arrive one after the other; keep per-track order on ties.
	sort.SliceStable(all, func(i, j int) bool { return all[i].at < all[j].at })

	events := make([]Event, len(all))
	var prev int64
	for i, t := range all {
		ev := t.event
		ev.Delta = float64(t.at-prev) / 1e6
		prev = t.at
		events[i] = ev
	}
	return events, nil
}

// Write encodes events as a single-track SMF. Deltas are quantized to ticks.
func Write(w io.Writer, events []Event) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(writeTicks)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(writeBPM))
	for _, ev := range events {
		if ev.Delta < 0 {
			return fmt.Errorf("midi: negative delta %g", ev.Delta)
		}
		ticks := uint32(math.Round(ev.Delta * ticksPerSecond))
		ch, key, vel := ev.Channel&0x0F, uint8(ev.Pitch&0x7F), uint8(ev.Velocity&0x7F)
		if ev.IsOnset() {
			tr.Add(ticks, gomidi.NoteOn(ch, key, vel))
		} else {
			tr.Add(ticks, gomidi.NoteOffVelocity(ch, key, vel))
		}
	}
	tr.Close(0)

	if err := s.Add(tr); err != nil {
		return fmt.Errorf("midi: add track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("midi: write smf: %w", err)
	}
	return nil
}

// WriteFile encodes events into a new file at path
func WriteFile(path string, events []Event) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if err := Write(f, events); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
