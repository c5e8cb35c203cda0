package synth

import (
	"errors"
	"math"
	"testing"

	"midi-synth/midi"
)

func TestAmplitudeMapping(t *testing.T) {
	if Amplitude(0) != 0 {
		t.Fatalf("Amplitude(0)=%v", Amplitude(0))
	}
	if Amplitude(127) != 1 {
		t.Fatalf("Amplitude(127)=%v", Amplitude(127))
	}
	prev := -1.0
	for v := 0; v <= 127; v++ {
		a := Amplitude(v)
		if a <= prev {
			t.Fatalf("Amplitude not increasing at %d", v)
		}
		if math.Abs(a-float64(v)/127) > 1e-15 {
			t.Fatalf("Amplitude(%d)=%v not linear", v, a)
		}
		prev = a
	}
}

func TestFrequency(t *testing.T) {
	cases := []struct {
		pitch float64
		want  float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6255653005986},
		{69.5, 452.8929841231365},
	}
	for _, c := range cases {
		if got := Frequency(c.pitch); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("Frequency(%v)=%v; want %v", c.pitch, got, c.want)
		}
	}
}

func TestToSignalParams(t *testing.T) {
	p := ToSignalParams(Interval{Pitch: 69, Start: 0.5, End: 1.25, Velocity: 127}, SampleRate)
	if p.StartSample != 22050 || p.EndSample != 55125 {
		t.Fatalf("sample range [%d,%d)", p.StartSample, p.EndSample)
	}
	if p.Amplitude != 1 || p.Frequency != 440 {
		t.Fatalf("params %+v", p)
	}
	if p.Empty() {
		t.Fatalf("non-empty params reported empty")
	}

	short := ToSignalParams(Interval{Pitch: 60, Start: 0.00001, End: 0.00002, Velocity: 64}, SampleRate)
	if !short.Empty() {
		t.Fatalf("sub-sample note should be empty: %+v", short)
	}
}

func TestRenderScenario(t *testing.T) {
	tl, err := Normalize([]midi.Event{midi.On(69, 127, 0), midi.Off(69, 0, 1.0)})
	if err != nil {
		t.Fatal(err)
	}
	if tl.Duration != 1.0 || len(tl.Intervals) != 1 {
		t.Fatalf("timeline %+v", tl)
	}
	if got, want := tl.Intervals[0], (Interval{Pitch: 69, Start: 0, End: 1, Velocity: 127}); got != want {
		t.Fatalf("interval %+v; want %+v", got, want)
	}

	buf, err := Render(tl.Intervals, tl.Duration, SampleRate)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(buf) != 44100 {
		t.Fatalf("len=%d; want 44100", len(buf))
	}
	if buf[0] != 0 {
		t.Fatalf("buf[0]=%v; want 0", buf[0])
	}
	want := math.Sin(2 * math.Pi * 440 * 100 / 44100)
	if math.Abs(buf[100]-want) > 1e-12 {
		t.Fatalf("buf[100]=%v; want %v", buf[100], want)
	}
	if buf.Seconds(SampleRate) != 1 {
		t.Fatalf("Seconds=%v", buf.Seconds(SampleRate))
	}
}

func TestRenderSuperposition(t *testing.T) {
	a := Interval{Pitch: 69, Start: 0, End: 0.5, Velocity: 127}
	b := Interval{Pitch: 76, Start: 0.5, End: 1, Velocity: 127}
	c := Interval{Pitch: 64, Start: 0.25, End: 0.75, Velocity: 127}

	ra, _ := Render([]Interval{a}, 1, SampleRate)
	rb, _ := Render([]Interval{b}, 1, SampleRate)
	rc, _ := Render([]Interval{c}, 1, SampleRate)

	disjoint, err := Render([]Interval{a, b}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	for i := range disjoint {
		if disjoint[i] != ra[i]+rb[i] {
			t.Fatalf("disjoint sample %d = %v; want %v", i, disjoint[i], ra[i]+rb[i])
		}
	}
	// a ends exactly where b starts: no sample belongs to both
	if ra[22050] != 0 || rb[22049] != 0 {
		t.Fatalf("ranges overlap at the boundary")
	}

	overlap, err := Render([]Interval{a, c}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	sr := float64(SampleRate)
	for i := 11025; i < 22050; i++ {
		want := math.Sin(2*math.Pi*Frequency(69)*(float64(i)/sr)) + math.Sin(2*math.Pi*Frequency(64)*(float64(i)/sr))
		if math.Abs(overlap[i]-want) > 1e-12 {
			t.Fatalf("overlap sample %d = %v; want %v", i, overlap[i], want)
		}
		if overlap[i] != ra[i]+rc[i] {
			t.Fatalf("overlap sample %d is not the elementwise sum", i)
		}
	}
}

func TestRenderAbsolutePhase(t *testing.T) {
	iv := Interval{Pitch: 69, Start: 0.5, End: 1, Velocity: 127}
	buf, err := Render([]Interval{iv}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	i := 22050
	want := math.Sin(2 * math.Pi * 440 * (float64(i) / SampleRate))
	if math.Abs(buf[i]-want) > 1e-12 {
		t.Fatalf("buf[%d]=%v; want absolute-phase %v", i, buf[i], want)
	}
	for j := 0; j < i; j++ {
		if buf[j] != 0 {
			t.Fatalf("sample %d before onset is %v", j, buf[j])
		}
	}
}

func TestRenderNoClipping(t *testing.T) {
	var ivs []Interval
	for k := 0; k < 8; k++ {
		ivs = append(ivs, Interval{Pitch: 69, Start: 0, End: 0.1, Velocity: 127})
	}
	buf, err := Render(ivs, 0.1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Peak() <= 1 {
		t.Fatalf("peak=%v; summed voices should exceed 1", buf.Peak())
	}
}

func TestRenderClipsToBuffer(t *testing.T) {
	// interval beyond the declared duration is cut at the buffer end
	buf, err := Render([]Interval{{Pitch: 69, Start: 0.5, End: 3, Velocity: 127}}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != SampleRate {
		t.Fatalf("len=%d", len(buf))
	}
}

func TestRenderZeroVelocityAndEmptyNotes(t *testing.T) {
	buf, err := Render([]Interval{
		{Pitch: 69, Start: 0, End: 1, Velocity: 0},
		{Pitch: 60, Start: 0.2, End: 0.2000001, Velocity: 100},
	}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Peak() != 0 {
		t.Fatalf("silent notes produced peak %v", buf.Peak())
	}
}

func TestRenderEmpty(t *testing.T) {
	buf, err := Render(nil, 0, SampleRate)
	if err != nil {
		t.Fatalf("empty render: %v", err)
	}
	if len(buf) != 0 {
		t.Fatalf("len=%d", len(buf))
	}
}

func TestRenderInvalidDuration(t *testing.T) {
	cases := []struct {
		name      string
		intervals []Interval
		duration  float64
	}{
		{"negative", nil, -1},
		{"nan", nil, math.NaN()},
		{"too short for notes", []Interval{{Pitch: 60, Start: 0, End: 1e-6, Velocity: 1}}, 1e-6},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Render(c.intervals, c.duration, SampleRate)
			var ide *InvalidDurationError
			if !errors.As(err, &ide) || !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("err=%v; want InvalidDurationError", err)
			}
			if _, err := NewRenderer(SampleRate).Render(c.intervals, c.duration); !errors.Is(err, ErrInvalidDuration) {
				t.Fatalf("Renderer err=%v; want InvalidDurationError", err)
			}
		})
	}
}

func TestRenderRangeWindow(t *testing.T) {
	ivs := []Interval{
		{Pitch: 69, Start: 0, End: 0.3, Velocity: 100},
		{Pitch: 72, Start: 0.1, End: 0.5, Velocity: 60},
	}
	full, err := Render(ivs, 0.5, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	from := 10000
	win := make([]float64, 5000)
	RenderRange(win, from, ivs, SampleRate)
	for i, v := range win {
		if v != full[from+i] {
			t.Fatalf("window sample %d = %v; want %v", i, v, full[from+i])
		}
	}
}

func TestRendererMatchesSerial(t *testing.T) {
	var ivs []Interval
	for k := 0; k < 40; k++ {
		start := float64(k) * 0.037
		ivs = append(ivs, Interval{Pitch: 48 + k%24, Start: start, End: start + 0.21, Velocity: 20 + 2*k})
	}
	dur := 1.7
	serial, err := Render(ivs, dur, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	configs := []Renderer{
		{SampleRate: SampleRate, Workers: 1},
		{SampleRate: SampleRate, Workers: 4, ChunkSize: 1000},
		{SampleRate: SampleRate, Workers: 3, ChunkSize: 7},
		{SampleRate: SampleRate, Workers: 16, ChunkSize: 1 << 20},
	}
	for _, r := range configs {
		got, err := r.Render(ivs, dur)
		if err != nil {
			t.Fatalf("%+v: %v", r, err)
		}
		if len(got) != len(serial) {
			t.Fatalf("%+v: len=%d; want %d", r, len(got), len(serial))
		}
		for i := range serial {
			if got[i] != serial[i] {
				t.Fatalf("%+v: sample %d = %v; want %v", r, i, got[i], serial[i])
			}
		}
	}
}

func TestLengthRejectsOversizedDuration(t *testing.T) {
	for _, dur := range []float64{1e300, 1e6, float64(MaxSamples)/SampleRate + 1} {
		n, err := Length(dur, SampleRate, 0)
		var ide *InvalidDurationError
		if !errors.As(err, &ide) || !ide.TooLong {
			t.Fatalf("Length(%g) = %d, %v; want too-long InvalidDurationError", dur, n, err)
		}
		if _, err := Render(nil, dur, SampleRate); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("Render(%g) err=%v", dur, err)
		}
	}
	if n, err := Length(float64(MaxSamples-SampleRate)/SampleRate, SampleRate, 1); err != nil || n < MaxSamples-SampleRate-1 {
		t.Fatalf("Length below the cap = %d, %v", n, err)
	}
}

func TestToSignalParamsSaturates(t *testing.T) {
	p := ToSignalParams(Interval{Pitch: 69, Start: 0, End: 1e300, Velocity: 127}, SampleRate)
	if p.EndSample != math.MaxInt || p.Empty() {
		t.Fatalf("long note params %+v", p)
	}
	buf, err := Render([]Interval{{Pitch: 69, Start: 0, End: 1e300, Velocity: 127}}, 1, SampleRate)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Peak() < 0.99 {
		t.Fatalf("note spanning the buffer rendered with peak %v", buf.Peak())
	}
	if got := ToSignalParams(Interval{Pitch: 60, Start: -1, End: 0.5, Velocity: 1}, SampleRate); got.StartSample != 0 {
		t.Fatalf("negative start not clamped: %+v", got)
	}
}
