package synth

import (
	"math"
	"runtime"

	"github.com/remeh/sizedwaitgroup"
)

// DefaultChunkSize is the number of samples one worker renders at a time
const DefaultChunkSize = 1 << 14

// MaxSamples caps a rendered buffer at 16 GiB of float64, about 13.5 hours
// at 44.1 kHz.
const MaxSamples = 1 << 31

// Buffer is a mono waveform, sample i at time i/sampleRate
type Buffer []float64

// Seconds is the playing time of the buffer
func (b Buffer) Seconds(sampleRate int) float64 {
	return float64(len(b)) / float64(sampleRate)
}

// Peak is the largest absolute sample value
func (b Buffer) Peak() float64 {
	var peak float64
	for _, v := range b {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// Length computes the buffer length for a timeline
func Length(duration float64, sampleRate int, notes int) (int, error) {
	if duration < 0 || math.IsNaN(duration) || math.IsInf(duration, 0) {
		return 0, &InvalidDurationError{Duration: duration, Notes: notes}
	}
	x := math.Floor(duration * float64(sampleRate))
	if x > MaxSamples {
		return 0, &InvalidDurationError{Duration: duration, Notes: notes, TooLong: true}
	}
	n := int(x)
	if n == 0 && notes > 0 {
		return 0, &InvalidDurationError{Duration: duration, Notes: notes}
	}
	return n, nil
}

// Render superposes every interval's sine into a fresh buffer
func Render(intervals []Interval, duration float64, sampleRate int) (Buffer, error) {
	n, err := Length(duration, sampleRate, len(intervals))
	if err != nil {
		return nil, err
	}
	buf := make(Buffer, n)
	RenderRange(buf, 0, intervals, sampleRate)
	return buf, nil
}

// RenderRange adds the contributions of intervals into buf, which holds the
// absolute sample indices [from, from+len(buf)). Samples outside that window
// are skipped, so disjoint windows can be rendered independently.
func RenderRange(buf []float64, from int, intervals []Interval, sampleRate int) {
	params := make([]SignalParams, len(intervals))
	for i, iv := range intervals {
		params[i] = ToSignalParams(iv, sampleRate)
	}
	accumulate(buf, from, params, sampleRate)
}

func accumulate(buf []float64, from int, params []SignalParams, sampleRate int) {
	sr := float64(sampleRate)
	to := from + len(buf)
	for _, p := range params {
		if p.Empty() {
			continue
		}
		s, e := max(p.StartSample, from), min(p.EndSample, to)
		// phase from absolute time zero, not from the onset
		w := 2 * math.Pi * p.Frequency
		for i := s; i < e; i++ {
			buf[i-from] += p.Amplitude * math.Sin(w*(float64(i)/sr))
		}
	}
}

// Renderer renders buffers in disjoint chunks on a bounded worker pool.
// Every sample sums the same notes in the same order as Render, so the
// output is identical.
type Renderer struct {
	SampleRate int
	Workers    int // <= 1 renders serially
	ChunkSize  int // samples per chunk
}

// NewRenderer uses every CPU with the default chunk size
func NewRenderer(sampleRate int) *Renderer {
	return &Renderer{
		SampleRate: sampleRate,
		Workers:    runtime.NumCPU(),
		ChunkSize:  DefaultChunkSize,
	}
}

// Render is the chunked equivalent of the package-level Render
func (r *Renderer) Render(intervals []Interval, duration float64) (Buffer, error) {
	n, err := Length(duration, r.SampleRate, len(intervals))
	if err != nil {
		return nil, err
	}
	buf := make(Buffer, n)

	chunk := r.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	params := make([]SignalParams, 0, len(intervals))
	for _, iv := range intervals {
		if p := ToSignalParams(iv, r.SampleRate); !p.Empty() {
			params = append(params, p)
		}
	}

	if r.Workers <= 1 || n <= chunk {
		accumulate(buf, 0, params, r.SampleRate)
		return buf, nil
	}

	wg := sizedwaitgroup.New(r.Workers)
	for from := 0; from < n; from += chunk {
		to := min(from+chunk, n)
		wg.Add()
		go func(from, to int) {
			defer wg.Done()
			accumulate(buf[from:to], from, overlapping(params, from, to), r.SampleRate)
		}(from, to)
	}
	wg.Wait()
	return buf, nil
}

// overlapping keeps the params touching [from, to), preserving order
func overlapping(params []SignalParams, from, to int) []SignalParams {
	var out []SignalParams
	for _, p := range params {
		if p.StartSample < to && p.EndSample > from {
			out = append(out, p)
		}
	}
	return out
}
