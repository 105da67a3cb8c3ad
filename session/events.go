package session

import "go.parlo.dev/parlo/transcript"

// Event is something the session front-end should react to. Exactly one
// concrete type flows per value.
type Event interface {
	isEvent()
}

// Opened fires once the transport, capture, and playback are all live.
type Opened struct{}

// Closed fires exactly once when the session finishes tearing down, whether
// by Disconnect or by failure.
type Closed struct{}

// ErrorEvent carries a non-recoverable session error. A Closed event follows.
type ErrorEvent struct {
	Err error
}

// MessageEvent carries the current snapshot of a transcript message each time
// it grows or seals.
type MessageEvent struct {
	Message transcript.Message
}

// LevelEvent reports microphone loudness in [0,1], one value per captured
// frame.
type LevelEvent struct {
	RMS float64
}

// SpeakingEvent reports a locally detected speech edge on the microphone.
// It is UI feedback only; the agent decides turn boundaries on its own.
type SpeakingEvent struct {
	Active bool
}

func (Opened) isEvent()        {}
func (Closed) isEvent()        {}
func (ErrorEvent) isEvent()    {}
func (MessageEvent) isEvent()  {}
func (LevelEvent) isEvent()    {}
func (SpeakingEvent) isEvent() {}
