package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"midi-synth/config"
	"midi-synth/debug"
	"midi-synth/midi"
	"midi-synth/sink"
	"midi-synth/synth"
	"midi-synth/theme"
	"midi-synth/tui"
)

var version = "dev"

// Exit codes
const (
	exitOK      = 0
	exitFailure = 1 // missing input, occupied output, I/O or device failure
	exitUsage   = 2
	exitInput   = 3 // input decodes but cannot be rendered
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	output     string
	bits       int
	workers    int
	closeOpen  bool
	debug      bool
	tui        bool
	config     string
	saveConfig bool
	version    bool
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		w := fs.Output()
		fmt.Fprintln(w, "usage: midi-synth [flags] <input.mid>")
		fmt.Fprintln(w, "       midi-synth [flags] -save-config")
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Renders the notes of a Standard MIDI File as summed sine waves.")
		fmt.Fprintln(w, "Without -o the result is played on the default audio device.")
		fmt.Fprintln(w, "WAV output is integer PCM: samples beyond ±1 are clamped at every")
		fmt.Fprintln(w, "bit depth, -bits 32 included.")
		fmt.Fprintln(w, "")
		fs.PrintDefaults()
	}
}

// parseArgs accepts flags before and after the positional input path
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// exitCode maps a pipeline error onto the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, midi.ErrMalformedFile),
		errors.Is(err, synth.ErrMalformedStream),
		errors.Is(err, synth.ErrInvalidDuration):
		return exitInput
	default:
		return exitFailure
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var opt options
	fs := flag.NewFlagSet("midi-synth", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opt.output, "o", "", "output WAV file (default: play on the audio device)")
	fs.StringVar(&opt.output, "output", "", "same as -o")
	fs.IntVar(&opt.bits, "bits", sink.DefaultBitDepth, "WAV bit depth: 16, 24 or 32 (out-of-range samples are clamped at any depth)")
	fs.IntVar(&opt.workers, "workers", 0, "render workers (0 = one per CPU)")
	fs.BoolVar(&opt.closeOpen, "close-open", false, "end notes still held at the end of the file instead of dropping them")
	fs.BoolVar(&opt.debug, "debug", false, "write a debug log to ~/.config/midi-synth/debug.log")
	fs.BoolVar(&opt.tui, "tui", false, "show the playback view (default: when stdout is a terminal)")
	fs.StringVar(&opt.config, "config", "", "config file (default ~/.config/midi-synth/config.json)")
	fs.BoolVar(&opt.saveConfig, "save-config", false, "write the effective settings to the config file and exit")
	fs.BoolVar(&opt.version, "version", false, "print version and exit")
	fs.Usage = usage(fs)

	positional, err := parseArgs(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if opt.version {
		fmt.Fprintln(stdout, "midi-synth", version)
		return exitOK
	}

	th := theme.New(nil)
	fail := func(err error) int {
		fmt.Fprintln(stderr, th.ErrorStyle().Render("midi-synth:"), err)
		return exitCode(err)
	}

	var cfg *config.Config
	if opt.config != "" {
		cfg, err = config.LoadFrom(opt.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fail(fmt.Errorf("config: %w", err))
	}
	if err := applyFlags(fs, &opt, cfg); err != nil {
		fmt.Fprintln(stderr, "midi-synth:", err)
		return exitUsage
	}

	if opt.saveConfig {
		path := opt.config
		if path == "" {
			err = cfg.Save()
			path, _ = config.ConfigPath()
		} else {
			err = cfg.SaveTo(path)
		}
		if err != nil {
			return fail(fmt.Errorf("save config: %w", err))
		}
		fmt.Fprintln(stdout, th.SuccessStyle().Render("wrote "+path))
		return exitOK
	}

	if len(positional) != 1 {
		fmt.Fprintln(stderr, "midi-synth: expected exactly one input file")
		fs.Usage()
		return exitUsage
	}
	input := positional[0]

	if cfg.UI.Palette != "" {
		if t, err := theme.Load(cfg.UI.Palette); err != nil {
			fmt.Fprintln(stderr, th.WarningStyle().Render("midi-synth: using built-in palette:"), err)
		} else {
			th = t
		}
	}

	if cfg.Debug {
		if err := debug.Enable(); err != nil {
			fmt.Fprintln(stderr, th.WarningStyle().Render("midi-synth: debug log:"), err)
		}
		defer debug.Disable()
		if debug.Enabled() {
			if path, err := debug.DefaultPath(); err == nil {
				fmt.Fprintln(stderr, th.DimStyle().Render("midi-synth: debug log at "+path))
			}
		}
	}

	// both paths are checked before anything is decoded or rendered
	if err := midi.CheckInput(input); err != nil {
		return fail(err)
	}
	if opt.output != "" {
		if err := sink.CheckOutput(opt.output); err != nil {
			return fail(err)
		}
	}

	events, err := midi.ReadFile(input)
	if err != nil {
		return fail(err)
	}
	debug.Log("input", "%s: %d note events", input, len(events))

	tl, err := synth.NormalizeWith(events, synth.Options{
		CloseOpenOnsets: cfg.Render.CloseOpenOnsets,
		Observer: func(kind synth.Irregularity, pitch int, at float64) {
			debug.Log("normalize", "%s %s at %.3fs", kind, midi.NoteName(pitch), at)
		},
	})
	if err != nil {
		return fail(err)
	}

	r := synth.NewRenderer(synth.SampleRate)
	if cfg.Render.Workers > 0 {
		r.Workers = cfg.Render.Workers
	}
	if cfg.Render.ChunkSize > 0 {
		r.ChunkSize = cfg.Render.ChunkSize
	}
	start := time.Now()
	buf, err := r.Render(tl.Intervals, tl.Duration)
	if err != nil {
		return fail(err)
	}
	debug.Logger().Debug("rendered",
		"notes", len(tl.Intervals),
		"samples", len(buf),
		"peak", buf.Peak(),
		"workers", r.Workers,
		"took", time.Since(start))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := chooseSink(ctx, opt, cfg, stdin, stdout, th, filepath.Base(input))
	if err != nil {
		return fail(err)
	}
	err = out.Write(buf, synth.SampleRate)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(stdout, th.DimStyle().Render("playback stopped"))
		return exitOK
	}
	if err != nil {
		return fail(err)
	}

	length := tui.Clock(time.Duration(buf.Seconds(synth.SampleRate) * float64(time.Second)))
	if opt.output != "" {
		size := "?"
		if fi, err := os.Stat(opt.output); err == nil {
			size = humanize.Bytes(uint64(fi.Size()))
		}
		fmt.Fprintln(stdout, th.SuccessStyle().Render(fmt.Sprintf("%s: %d notes, %s, %s", opt.output, len(tl.Intervals), length, size)))
		return exitOK
	}
	fmt.Fprintln(stdout, th.SuccessStyle().Render(fmt.Sprintf("played %s: %d notes, %s", filepath.Base(input), len(tl.Intervals), length)))
	return exitOK
}

// chooseSink returns the WAV sink when an output path is set, the audio
// device otherwise.
func chooseSink(ctx context.Context, opt options, cfg *config.Config, stdin io.Reader, stdout io.Writer, th *theme.Theme, title string) (sink.Sink, error) {
	if opt.output != "" {
		return sink.NewWAV(opt.output, cfg.Output.BitDepth)
	}
	dev := sink.NewDevice()
	dev.BufferSize = cfg.DeviceBuffer()
	return &playback{
		ctx:    ctx,
		dev:    dev,
		view:   cfg.ShowProgress(isTerminal(stdout)),
		stdin:  stdin,
		stdout: stdout,
		theme:  th,
		title:  title,
	}, nil
}

// playback drives the device sink, optionally behind the progress view
type playback struct {
	ctx    context.Context
	dev    *sink.Device
	view   bool
	stdin  io.Reader
	stdout io.Writer
	theme  *theme.Theme
	title  string
}

func (p *playback) Write(buf synth.Buffer, sampleRate int) error {
	if !p.view {
		return p.dev.WriteContext(p.ctx, buf, sampleRate)
	}
	return tui.Run(p.ctx, p.stdin, p.stdout, p.theme, p.title, sampleRate,
		func(ctx context.Context, progress func(played, total int)) error {
			p.dev.Progress = progress
			return p.dev.WriteContext(ctx, buf, sampleRate)
		})
}

// applyFlags copies explicitly set flags over the config
func applyFlags(fs *flag.FlagSet, opt *options, cfg *config.Config) error {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "bits":
			cfg.Output.BitDepth = opt.bits
		case "workers":
			cfg.Render.Workers = opt.workers
		case "close-open":
			cfg.Render.CloseOpenOnsets = opt.closeOpen
		case "debug":
			cfg.Debug = opt.debug
		case "tui":
			show := opt.tui
			cfg.UI.Progress = &show
		}
	})
	return cfg.Validate()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
