// Package playback decodes inbound speech chunks and schedules them on a
// continuous, gap-free device timeline, with hard-stop support for barge-in.
package playback

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

// SampleRate is the agent's output rate.
const SampleRate = 24000

// ErrDecode marks a malformed inbound audio chunk. Decode failures are
// chunk-local: the caller drops the chunk and the timeline does not advance.
var ErrDecode = errors.New("playback: malformed audio chunk")

// Handle allows force-stopping one scheduled unit, including units whose
// start time is still in the future.
type Handle interface {
	Stop()
}

// Output is the playback device. Now is the device clock; Schedule queues
// samples to start at exactly startAt on that clock. onEnded fires once when
// the unit plays to natural completion (never after Stop) and must not be
// invoked synchronously from within Schedule.
type Output interface {
	Now() time.Duration
	Schedule(samples []int16, startAt time.Duration, onEnded func()) (Handle, error)
	Close() error
}

// Scheduler owns the playback timeline. nextStart of zero is the "unset"
// sentinel: the next chunk schedules from the current device clock.
type Scheduler struct {
	mu        sync.Mutex
	out       Output
	nextStart time.Duration
	units     map[uint64]Handle
	nextID    uint64
	closed    bool
}

// NewScheduler creates a scheduler on the given output device.
func NewScheduler(out Output) *Scheduler {
	return &Scheduler{
		out:   out,
		units: make(map[uint64]Handle),
	}
}

// Enqueue decodes one PCM16LE chunk and schedules it immediately after
// whatever is already queued, catching up to the device clock after a stall.
func (s *Scheduler) Enqueue(pcm []byte) error {
	samples, err := decodePCM16LE(pcm)
	if err != nil {
		return err
	}
	d := time.Duration(len(samples)) * time.Second / SampleRate

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	if now := s.out.Now(); s.nextStart < now {
		s.nextStart = now
	}
	startAt := s.nextStart

	id := s.nextID
	s.nextID++
	h, err := s.out.Schedule(samples, startAt, func() { s.finish(id) })
	if err != nil {
		return err
	}
	s.units[id] = h
	s.nextStart = startAt + d
	return nil
}

// finish is the natural-completion bookkeeping. A unit already cleared by an
// interruption is simply absent; completion never re-adds it.
func (s *Scheduler) finish(id uint64) {
	s.mu.Lock()
	delete(s.units, id)
	s.mu.Unlock()
}

// Interrupt force-stops every active and future-scheduled unit and resets the
// timeline, so the next chunk schedules from "now". The active set is cleared
// under the lock before any Stop runs, which makes the reset visible to any
// Enqueue racing this call.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]Handle, 0, len(s.units))
	for id, h := range s.units {
		stopped = append(stopped, h)
		delete(s.units, id)
	}
	s.nextStart = 0
	s.mu.Unlock()

	for _, h := range stopped {
		h.Stop()
	}
}

// Active returns the number of scheduled-or-playing units.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// Close interrupts everything and releases the device. Further Enqueue calls
// are no-ops.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Interrupt()
	return s.out.Close()
}

func decodePCM16LE(pcm []byte) ([]int16, error) {
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return nil, ErrDecode
	}
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples, nil
}
