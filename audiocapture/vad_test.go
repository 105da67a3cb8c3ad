package audiocapture

import (
	"testing"
	"time"
)

func TestDetector_EdgeSequence(t *testing.T) {
	d := NewDetector(0.02, 200*time.Millisecond, 600*time.Millisecond)
	base := time.Unix(1700000000, 0)

	// Each step advances a simulated clock; frames arrive every 50 ms.
	sequence := []struct {
		name  string
		at    time.Duration
		level float64
		want  Edge
	}{
		{"silence", 0, 0.001, EdgeNone},
		{"first loud frame", 50 * time.Millisecond, 0.05, EdgeNone},
		{"still unconfirmed", 100 * time.Millisecond, 0.05, EdgeNone},
		{"segment confirmed", 300 * time.Millisecond, 0.05, EdgeSpeechStart},
		{"continuing speech", 350 * time.Millisecond, 0.05, EdgeNone},
		{"brief dip stays open", 400 * time.Millisecond, 0.001, EdgeNone},
		{"resumes", 450 * time.Millisecond, 0.05, EdgeNone},
		{"silence begins", 500 * time.Millisecond, 0.001, EdgeNone},
		{"hangover not yet over", 1000 * time.Millisecond, 0.001, EdgeNone},
		{"segment ends", 1100 * time.Millisecond, 0.001, EdgeSpeechEnd},
		{"stays silent", 1200 * time.Millisecond, 0.001, EdgeNone},
	}

	for _, step := range sequence {
		if got := d.Process(step.level, base.Add(step.at)); got != step.want {
			t.Fatalf("%s: edge = %v, want %v", step.name, got, step.want)
		}
	}
	if d.Speaking() {
		t.Error("Speaking() = true after segment end")
	}
}

func TestDetector_ShortBurstIgnored(t *testing.T) {
	d := NewDetector(0.02, 200*time.Millisecond, 600*time.Millisecond)
	base := time.Unix(1700000000, 0)

	// A 100 ms pop never confirms and produces no edges at all.
	if got := d.Process(0.5, base); got != EdgeNone {
		t.Fatalf("burst start: edge = %v", got)
	}
	if got := d.Process(0.5, base.Add(100*time.Millisecond)); got != EdgeNone {
		t.Fatalf("burst continue: edge = %v", got)
	}
	if got := d.Process(0.001, base.Add(800*time.Millisecond)); got != EdgeNone {
		t.Fatalf("burst end: edge = %v, want none for unconfirmed segment", got)
	}
}

func TestDetector_Defaults(t *testing.T) {
	d := NewDetector(0.02, 0, 0)
	if d.minSpeech == 0 || d.hangover == 0 {
		t.Error("zero durations not defaulted")
	}
}

func TestDetector_Reset(t *testing.T) {
	d := NewDetector(0.02, 200*time.Millisecond, 600*time.Millisecond)
	base := time.Unix(1700000000, 0)
	d.Process(0.5, base)
	d.Process(0.5, base.Add(300*time.Millisecond))
	if !d.Speaking() {
		t.Fatal("segment not open")
	}
	d.Reset()
	if d.Speaking() {
		t.Error("Speaking() = true after reset")
	}
}
