package playback

import (
	"testing"
	"time"
)

func TestFrameClockConversions(t *testing.T) {
	tests := []struct {
		name   string
		d      time.Duration
		frames int64
	}{
		{"zero", 0, 0},
		{"one second", time.Second, SampleRate},
		{"one millisecond", time.Millisecond, 24},
		{"long-running timeline", 30 * 24 * time.Hour, 30 * 24 * 3600 * SampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := durationToFrames(tt.d); got != tt.frames {
				t.Errorf("durationToFrames(%v) = %d, want %d", tt.d, got, tt.frames)
			}
			if got := framesToDuration(tt.frames); got != tt.d {
				t.Errorf("framesToDuration(%d) = %v, want %v", tt.frames, got, tt.d)
			}
		})
	}
}
