package audiocapture

import "time"

// Edge is a transition reported by the Detector.
type Edge int

const (
	EdgeNone Edge = iota
	EdgeSpeechStart
	EdgeSpeechEnd
)

// Detector turns per-frame loudness into speech start and end edges. It is a
// local hint for UI feedback; turn-taking itself is decided remotely. Not
// safe for concurrent use; feed it from a single capture callback.
type Detector struct {
	threshold  float64       // RMS level that counts as speech
	minSpeech  time.Duration // shorter bursts are ignored
	hangover   time.Duration // silence required to end a segment
	inSpeech   bool
	confirmed  bool
	speechFrom time.Time
	lastSpeech time.Time
}

// NewDetector builds a detector with the given RMS threshold. Zero durations
// select defaults tuned for 16 kHz microphone frames.
func NewDetector(threshold float64, minSpeech, hangover time.Duration) *Detector {
	if minSpeech == 0 {
		minSpeech = 200 * time.Millisecond
	}
	if hangover == 0 {
		hangover = 600 * time.Millisecond
	}
	return &Detector{
		threshold: threshold,
		minSpeech: minSpeech,
		hangover:  hangover,
	}
}

// Process consumes one frame's RMS level and reports any edge it causes.
// A start edge fires once the segment has lasted minSpeech; an end edge fires
// after hangover of continuous silence.
func (d *Detector) Process(level float64, now time.Time) Edge {
	loud := level > d.threshold

	if loud {
		if !d.inSpeech {
			d.inSpeech = true
			d.confirmed = false
			d.speechFrom = now
		}
		d.lastSpeech = now
		if !d.confirmed && now.Sub(d.speechFrom) >= d.minSpeech {
			d.confirmed = true
			return EdgeSpeechStart
		}
		return EdgeNone
	}

	if !d.inSpeech {
		return EdgeNone
	}
	if now.Sub(d.lastSpeech) < d.hangover {
		return EdgeNone
	}
	d.inSpeech = false
	if d.confirmed {
		d.confirmed = false
		return EdgeSpeechEnd
	}
	return EdgeNone
}

// Speaking reports whether a confirmed speech segment is open.
func (d *Detector) Speaking() bool {
	return d.inSpeech && d.confirmed
}

// Reset clears all state.
func (d *Detector) Reset() {
	d.inSpeech = false
	d.confirmed = false
	d.speechFrom = time.Time{}
	d.lastSpeech = time.Time{}
}
