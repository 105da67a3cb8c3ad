package audiocapture

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"
)

// fakeDevice delivers frames on demand via Emit.
type fakeDevice struct {
	mu       sync.Mutex
	callback func([]int16)
	started  bool
	stopped  bool
	startErr error
}

func (d *fakeDevice) Start(sampleRate, frameSize int, callback func([]int16)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.callback = callback
	d.started = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.callback = nil
	return nil
}

func (d *fakeDevice) Emit(frame []int16) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

func TestPipeline_FrameEncodingAndLevel(t *testing.T) {
	dev := &fakeDevice{}
	p := New(dev)

	var (
		gotPCM   []byte
		gotLevel float64
	)
	err := p.Start(
		func(pcm []byte) { gotPCM = pcm },
		func(level float64) { gotLevel = level },
	)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	frame := []int16{0, 16384, -16384, 32767}
	dev.Emit(frame)

	if len(gotPCM) != len(frame)*2 {
		t.Fatalf("encoded length = %d, want %d", len(gotPCM), len(frame)*2)
	}
	for i, s := range frame {
		got := int16(binary.LittleEndian.Uint16(gotPCM[i*2:]))
		if got != s {
			t.Errorf("sample %d = %d, want %d", i, got, s)
		}
	}
	if gotLevel <= 0 || gotLevel > 1 {
		t.Errorf("level = %v, want in (0,1]", gotLevel)
	}
}

func TestPipeline_StartTwice(t *testing.T) {
	p := New(&fakeDevice{})
	if err := p.Start(nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(nil, nil); err != ErrAlreadyCapturing {
		t.Errorf("second Start = %v, want ErrAlreadyCapturing", err)
	}
}

func TestPipeline_StopIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	p := New(dev)
	if err := p.Stop(); err != nil {
		t.Errorf("Stop before Start = %v, want nil", err)
	}
	if err := p.Start(nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop = %v, want nil", err)
	}
	if !dev.stopped {
		t.Error("device not stopped")
	}
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
		tol     float64
	}{
		{name: "empty", samples: nil, want: 0},
		{name: "silence", samples: make([]int16, 256), want: 0},
		{
			name:    "full-scale square",
			samples: []int16{32767, -32768, 32767, -32768},
			want:    1.0,
			tol:     0.01,
		},
		{
			name:    "half-scale square",
			samples: []int16{16384, -16384, 16384, -16384},
			want:    0.5,
			tol:     0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.samples)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("RMS = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestRMS_SineProportionalToAmplitude(t *testing.T) {
	sine := func(amp float64) []int16 {
		out := make([]int16, 1024)
		for i := range out {
			out[i] = int16(amp * 32767 * math.Sin(2*math.Pi*float64(i)/64))
		}
		return out
	}
	low := RMS(sine(0.1))
	high := RMS(sine(0.8))
	if low >= high {
		t.Errorf("RMS not proportional: low=%v high=%v", low, high)
	}
}
