package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"midi-synth/midi"
	"midi-synth/synth"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "events":
		err = withEvents(os.Args[2], func(ev []midi.Event) error { return listEvents(os.Stdout, ev) })
	case "notes":
		err = withEvents(os.Args[2], func(ev []midi.Event) error { return listNotes(os.Stdout, ev) })
	case "stats":
		err = withEvents(os.Args[2], func(ev []midi.Event) error { return stats(os.Stdout, ev) })
	case "scale":
		err = writeScale(os.Args[2])
		if err == nil {
			fmt.Println("wrote", os.Args[2])
		}
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "midiinfo:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("MIDI file inspection")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  events <file.mid>  - Decoded note events with deltas")
	fmt.Println("  notes <file.mid>   - Resolved notes and their sample ranges")
	fmt.Println("  stats <file.mid>   - Totals and absorbed irregularities")
	fmt.Println("  scale <out.mid>    - Write a one-octave C major test file")
}

func withEvents(path string, fn func([]midi.Event) error) error {
	events, err := midi.ReadFile(path)
	if err != nil {
		return err
	}
	return fn(events)
}

func listEvents(w io.Writer, events []midi.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tkind\tch\tnote\tvel\tdelta\tat")
	var at float64
	for i, ev := range events {
		at += ev.Delta
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%.4f\t%.4f\n",
			i, ev.Kind, ev.Channel+1, midi.NoteName(ev.Pitch), ev.Velocity, ev.Delta, at)
	}
	return tw.Flush()
}

func listNotes(w io.Writer, events []midi.Event) error {
	tl, err := synth.Normalize(events)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "note\tstart\tend\tvel\tfreq\tamp\tsamples")
	for _, iv := range tl.Intervals {
		p := synth.ToSignalParams(iv, synth.SampleRate)
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%d\t%.2f\t%.3f\t[%d,%d)\n",
			midi.NoteName(iv.Pitch), iv.Start, iv.End, iv.Velocity,
			p.Frequency, p.Amplitude, p.StartSample, p.EndSample)
	}
	return tw.Flush()
}

func stats(w io.Writer, events []midi.Event) error {
	counts := make(map[synth.Irregularity]int)
	tl, err := synth.NormalizeWith(events, synth.Options{
		Observer: func(kind synth.Irregularity, _ int, _ float64) { counts[kind]++ },
	})
	if err != nil {
		return err
	}
	n, err := synth.Length(tl.Duration, synth.SampleRate, len(tl.Intervals))
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "events:      %s\n", humanize.Comma(int64(len(events))))
	fmt.Fprintf(w, "notes:       %s\n", humanize.Comma(int64(len(tl.Intervals))))
	fmt.Fprintf(w, "duration:    %.3fs\n", tl.Duration)
	fmt.Fprintf(w, "samples:     %s (%s as 16-bit WAV)\n", humanize.Comma(int64(n)), humanize.Bytes(uint64(2*n+44)))
	for _, kind := range []synth.Irregularity{synth.OrphanRelease, synth.OverwrittenOnset, synth.UnterminatedOnset} {
		fmt.Fprintf(w, "%-18s %d\n", kind.String()+":", counts[kind])
	}
	return nil
}

// writeScale writes C4..C5 with quarter-second notes
func writeScale(path string) error {
	steps := []int{0, 2, 4, 5, 7, 9, 11, 12}
	var events []midi.Event
	for i, s := range steps {
		gap := 0.0
		if i > 0 {
			gap = 0.05
		}
		events = append(events, midi.On(60+s, 100, gap), midi.Off(60+s, 0, 0.25))
	}
	return midi.WriteFile(path, events)
}
