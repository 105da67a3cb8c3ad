// Package audiocapture pulls fixed-size microphone frames, computes a
// per-frame loudness metric, and encodes each frame to the wire's PCM16LE
// layout.
package audiocapture

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
)

const (
	// SampleRate is the capture rate expected by the agent.
	SampleRate = 16000
	// FrameSize is the number of mono samples per frame (≈256 ms at 16 kHz).
	// The device is opened with this buffer size, so the device cadence is
	// the frame cadence.
	FrameSize = 4096
)

// ErrAlreadyCapturing is returned when Start is called on a running pipeline.
var ErrAlreadyCapturing = errors.New("audiocapture: already capturing")

// Device is the microphone abstraction. Start delivers frames of exactly
// frameSize samples on the device's own callback goroutine until Stop.
// The frame slice is only valid for the duration of the callback.
type Device interface {
	Start(sampleRate, frameSize int, callback func(frame []int16)) error
	Stop() error
}

// Pipeline reads frames from a Device, emits a loudness observation per
// frame, and hands the encoded frame bytes to the sink callback. The encoded
// slice is freshly allocated per frame and not retained.
type Pipeline struct {
	mu      sync.Mutex
	dev     Device
	running bool
}

// New creates a capture pipeline on the given device.
func New(dev Device) *Pipeline {
	return &Pipeline{dev: dev}
}

// Start begins capturing. onFrame receives the PCM16LE-encoded frame;
// onLevel receives the frame's RMS loudness in roughly 0..1. Either callback
// may be nil.
func (p *Pipeline) Start(onFrame func(pcm []byte), onLevel func(level float64)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyCapturing
	}

	err := p.dev.Start(SampleRate, FrameSize, func(frame []int16) {
		if onLevel != nil {
			onLevel(RMS(frame))
		}
		if onFrame != nil {
			onFrame(EncodePCM16LE(frame))
		}
	})
	if err != nil {
		return err
	}

	p.running = true
	return nil
}

// Stop halts capture. Safe to call when not running.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}
	p.running = false
	return p.dev.Stop()
}

// Running reports whether the pipeline is capturing.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RMS computes the root-mean-square amplitude of a frame, normalized so a
// full-scale sine lands around 0.7 and silence at 0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// EncodePCM16LE serializes samples to 16-bit little-endian PCM.
func EncodePCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
