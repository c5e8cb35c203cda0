package synth

import "math"

// SampleRate is the fixed output rate in Hz
const SampleRate = 44100

// SignalParams describe one note's sine contribution
type SignalParams struct {
	Amplitude   float64 // 0..1
	Frequency   float64 // Hz
	StartSample int
	EndSample   int // exclusive
}

// Empty reports a contribution shorter than one sample
func (p SignalParams) Empty() bool {
	return p.EndSample <= p.StartSample
}

// Amplitude maps velocity 0-127 linearly onto 0..1
func Amplitude(velocity int) float64 {
	return float64(velocity) / 127.0
}

// Frequency is the equal-tempered frequency of a note number, A4 (69) = 440 Hz.
// Fractional pitches are allowed.
func Frequency(pitch float64) float64 {
	return 440 * math.Pow(2, (pitch-69)/12)
}

// ToSignalParams converts an interval into synthesis parameters
func ToSignalParams(iv Interval, sampleRate int) SignalParams {
	sr := float64(sampleRate)
	return SignalParams{
		Amplitude:   Amplitude(iv.Velocity),
		Frequency:   Frequency(float64(iv.Pitch)),
		StartSample: sampleIndex(iv.Start, sr),
		EndSample:   sampleIndex(iv.End, sr),
	}
}

// sampleIndex is floor(t*sr) saturated to [0, MaxInt]
func sampleIndex(t, sr float64) int {
	x := math.Floor(t * sr)
	switch {
	case !(x > 0):
		return 0
	case x >= math.MaxInt:
		return math.MaxInt
	}
	return int(x)
}
