package sink

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"midi-synth/debug"
	"midi-synth/synth"
)

const (
	bytesPerSample = 4 // mono float32
	pollInterval   = 20 * time.Millisecond
	drainGrace     = 250 * time.Millisecond
)

// player is the subset of *oto.Player the device sink drives
type player interface {
	Play()
	Pause()
	BufferedSize() int
	Err() error
	Close() error
}

// backend is an opened audio session
type backend interface {
	NewPlayer(r io.Reader) player
	Suspend() error
}

type otoBackend struct {
	ctx *oto.Context
}

func (b otoBackend) NewPlayer(r io.Reader) player { return b.ctx.NewPlayer(r) }
func (b otoBackend) Suspend() error              { return b.ctx.Suspend() }

// openBackend opens the system audio device. Tests replace it with a fake.
var openBackend = func(sampleRate int, bufferSize time.Duration) (backend, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	return otoBackend{ctx: ctx}, nil
}

// Device streams a buffer to the default audio output
type Device struct {
	// BufferSize is the device buffer length; 0 lets the driver choose.
	BufferSize time.Duration

	// Progress, if set, is called with (played, total) samples while
	// the stream drains.
	Progress func(played, total int)
}

// NewDevice returns a device sink with the driver's default buffering
func NewDevice() *Device {
	return &Device{}
}

// Write plays buf to the end and releases the device
func (d *Device) Write(buf synth.Buffer, sampleRate int) error {
	return d.WriteContext(context.Background(), buf, sampleRate)
}

// WriteContext is Write with cancellation: a cancelled ctx stops playback
// early. The player and the audio session are released on every path.
func (d *Device) WriteContext(ctx context.Context, buf synth.Buffer, sampleRate int) (err error) {
	b, err := openBackend(sampleRate, d.BufferSize)
	if err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	defer func() {
		if serr := b.Suspend(); serr != nil {
			err = errors.Join(err, fmt.Errorf("release audio device: %w", serr))
		}
	}()

	src := &countingReader{r: bytes.NewReader(Float32LE(buf))}
	p := b.NewPlayer(src)
	defer func() {
		if cerr := p.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close stream: %w", cerr))
		}
	}()

	total := len(buf)
	length := time.Duration(float64(total) / float64(sampleRate) * float64(time.Second))
	started := time.Now()
	p.Play()

	// A drained player still leaves up to one device buffer in the driver;
	// the device is released only once the whole length plus that buffer
	// has sounded.
	end := started.Add(length + d.BufferSize + drainGrace)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for time.Now().Before(end) {
		if err := p.Err(); err != nil {
			return fmt.Errorf("write stream: %w", err)
		}
		if d.Progress != nil {
			d.Progress(played(src, p, started, sampleRate, total), total)
		}
		select {
		case <-ctx.Done():
			p.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := p.Err(); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	if d.Progress != nil {
		d.Progress(total, total)
	}
	return nil
}

// played estimates the samples already audible: no more than the player has
// pulled minus what it still buffers, and no more than wall time allows.
func played(src *countingReader, p player, started time.Time, sampleRate, total int) int {
	pulled := (int(src.n.Load()) - p.BufferedSize()) / bytesPerSample
	elapsed := int(time.Since(started).Seconds() * float64(sampleRate))
	debug.LogEvery(50, "device", "pulled=%d elapsed=%d total=%d", pulled, elapsed, total)
	return max(0, min(pulled, elapsed, total))
}

// Float32LE encodes samples as little-endian float32, the device format
func Float32LE(buf synth.Buffer) []byte {
	out := make([]byte, len(buf)*bytesPerSample)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(out[i*bytesPerSample:], math.Float32bits(float32(v)))
	}
	return out
}

// countingReader tracks how many bytes the player has pulled
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}
