package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"midi-synth/synth"
)

// DefaultBitDepth is used when none is configured
const DefaultBitDepth = 16

const wavFormatPCM = 1

// WAV writes mono integer PCM to a new file
type WAV struct {
	Path     string
	BitDepth int // 16, 24 or 32
}

// NewWAV validates the bit depth; 0 selects DefaultBitDepth
func NewWAV(path string, bitDepth int) (*WAV, error) {
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d (want 16, 24 or 32)", bitDepth)
	}
	return &WAV{Path: path, BitDepth: bitDepth}, nil
}

// Write creates the file exclusively; an existing path is never touched and
// a failed encode leaves nothing behind.
func (s *WAV) Write(buf synth.Buffer, sampleRate int) (err error) {
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &OutputAlreadyExistsError{Path: s.Path}
		}
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
		if err != nil {
			os.Remove(s.Path)
		}
	}()

	enc := wav.NewEncoder(f, sampleRate, s.BitDepth, 1, wavFormatPCM)
	ib := &audio.IntBuffer{
		Data:           Quantize(buf, s.BitDepth),
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: s.BitDepth,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finish wav: %w", err)
	}
	return nil
}

// Quantize converts samples to signed integers of the given depth. Values
// outside [-1, 1] are clamped here only; buf is not modified.
func Quantize(buf synth.Buffer, bitDepth int) []int {
	scale := float64(int64(1)<<(bitDepth-1) - 1)
	out := make([]int, len(buf))
	for i, v := range buf {
		v = math.Max(-1, math.Min(1, v))
		out[i] = int(math.Round(v * scale))
	}
	return out
}
