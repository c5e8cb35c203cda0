// Package sink delivers finished waveforms to a WAV file or an audio device.
package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"midi-synth/synth"
)

// Sink receives a finished buffer
type Sink interface {
	Write(buf synth.Buffer, sampleRate int) error
}

// ErrOutputExists is matched by OutputAlreadyExistsError
var ErrOutputExists = errors.New("output already exists")

// OutputAlreadyExistsError reports an occupied destination path
type OutputAlreadyExistsError struct {
	Path string
}

func (e *OutputAlreadyExistsError) Error() string {
	return fmt.Sprintf("provided output Wave file %s already exists", e.Path)
}

func (e *OutputAlreadyExistsError) Unwrap() error { return ErrOutputExists }

// CheckOutput fails with OutputAlreadyExistsError if path is occupied
func CheckOutput(path string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return &OutputAlreadyExistsError{Path: path}
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("stat output: %w", err)
	}
}
