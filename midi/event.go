package midi

// Kind is the closed set of note events the renderer understands.
// Values mirror the MIDI status nibbles.
type Kind uint8

const (
	NoteOn  Kind = 0x90
	NoteOff Kind = 0x80
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	default:
		return "Unknown"
	}
}

// Event is one note message of a decoded stream
type Event struct {
	Kind     Kind
	Channel  uint8 // 0-15, informational only
	Pitch    int
	Velocity int     // 0-127
	Delta    float64 // seconds since the previous event
}

// On builds a note-on event. A zero velocity yields a NoteOff, so the
// convention never leaks past ingestion.
func On(pitch, velocity int, delta float64) Event {
	if velocity == 0 {
		return Off(pitch, 0, delta)
	}
	return Event{Kind: NoteOn, Pitch: pitch, Velocity: velocity, Delta: delta}
}

// Off builds a note-off event
func Off(pitch, velocity int, delta float64) Event {
	return Event{Kind: NoteOff, Pitch: pitch, Velocity: velocity, Delta: delta}
}

// IsOnset reports whether the event opens a note
func (e Event) IsOnset() bool {
	return e.Kind == NoteOn && e.Velocity > 0
}

// Duration sums the deltas of a stream
func Duration(events []Event) float64 {
	var secs float64
	for _, ev := range events {
		secs += ev.Delta
	}
	return secs
}
