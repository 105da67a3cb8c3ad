package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// outputFrames is the device callback buffer size (~21 ms at 24 kHz), small
// enough that a hard stop lands within one buffer.
const outputFrames = 512

// paOutput renders scheduled units onto the default output device. The
// device clock is the number of frames handed to the hardware; units are
// placed on that timeline by absolute start frame.
type paOutput struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	clock  int64
	units  []*paUnit
	closed bool
}

type paUnit struct {
	samples []int16
	start   int64
	removed bool
	onEnded func()
}

// OpenOutput opens the default speaker at the agent's output rate.
func OpenOutput() (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	o := &paOutput{}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(SampleRate), outputFrames, o.fill)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start output stream: %w", err)
	}

	o.stream = stream
	return o, nil
}

func (o *paOutput) Now() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return framesToDuration(o.clock)
}

func (o *paOutput) Schedule(samples []int16, startAt time.Duration, onEnded func()) (Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, fmt.Errorf("playback: output closed")
	}

	u := &paUnit{
		samples: samples,
		start:   durationToFrames(startAt),
		onEnded: onEnded,
	}
	o.units = append(o.units, u)
	return &paHandle{out: o, unit: u}, nil
}

func (o *paOutput) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.units = nil
	stream := o.stream
	o.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.Stop()
		if cerr := stream.Close(); err == nil {
			err = cerr
		}
	}
	_ = portaudio.Terminate()
	return err
}

// fill is the device callback. It mixes every unit overlapping the current
// window into the output buffer and fires onEnded for units that finished.
// Completion callbacks run on a fresh goroutine so they can take locks.
func (o *paOutput) fill(out []int16) {
	for i := range out {
		out[i] = 0
	}

	o.mu.Lock()
	base := o.clock
	end := base + int64(len(out))

	var ended []func()
	kept := o.units[:0]
	for _, u := range o.units {
		last := u.start + int64(len(u.samples))
		if u.start < end && last > base {
			from := max(u.start, base)
			to := min(last, end)
			for f := from; f < to; f++ {
				mixed := int32(out[f-base]) + int32(u.samples[f-u.start])
				out[f-base] = clamp16(mixed)
			}
		}
		if last <= end {
			if u.onEnded != nil {
				ended = append(ended, u.onEnded)
			}
			continue
		}
		kept = append(kept, u)
	}
	o.units = kept
	o.clock = end
	o.mu.Unlock()

	for _, fn := range ended {
		go fn()
	}
}

type paHandle struct {
	out  *paOutput
	unit *paUnit
}

// Stop removes the unit from the timeline immediately; at most one device
// buffer of it can still reach the hardware. onEnded does not fire.
func (h *paHandle) Stop() {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	if h.unit.removed {
		return
	}
	h.unit.removed = true
	h.unit.onEnded = nil
	for i, u := range h.out.units {
		if u == h.unit {
			h.out.units = append(h.out.units[:i], h.out.units[i+1:]...)
			break
		}
	}
}

// The conversions split whole seconds from the remainder so the intermediate
// products stay far from int64 range even on a timeline that runs for days.
func framesToDuration(frames int64) time.Duration {
	sec := frames / SampleRate
	rem := frames % SampleRate
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/SampleRate
}

func durationToFrames(d time.Duration) int64 {
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return sec*SampleRate + rem*SampleRate/int64(time.Second)
}

func clamp16(v int32) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	}
	return int16(v)
}
