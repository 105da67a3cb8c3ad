// Package session wires microphone capture, the remote agent connection, the
// transcript, and speech playback into one full-duplex conversation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.parlo.dev/parlo/agent"
	"go.parlo.dev/parlo/audiocapture"
	"go.parlo.dev/parlo/internal/types"
	"go.parlo.dev/parlo/playback"
	"go.parlo.dev/parlo/transcript"
)

// sendQueueSize bounds outbound audio. A slow or stalled transport drops the
// newest frames rather than blocking the capture callback.
const sendQueueSize = 16

// speechThreshold is the RMS level above which a frame counts as speech for
// the local speaking indicator.
const speechThreshold = 0.015

// ErrSessionClosed is returned by Connect once a session has fully torn down.
// Sessions are single-use; build a new one to reconnect.
var ErrSessionClosed = errors.New("session: already closed")

// Config selects the conversation to run.
type Config struct {
	Mode     types.Mode
	Scenario types.Scenario
	Voice    string

	URL    string
	APIKey string
	Model  string
}

// Transport is the live agent connection. *agent.Client implements it.
type Transport interface {
	SendAudio(pcm []byte) error
	Messages() <-chan agent.ServerMessage
	Errs() <-chan error
	Close() error
}

// DialFunc opens a Transport. Swappable for tests.
type DialFunc func(ctx context.Context, cfg agent.ClientConfig) (Transport, error)

// Capture is the microphone pipeline. *audiocapture.Pipeline implements it.
type Capture interface {
	Start(onFrame func(pcm []byte), onLevel func(level float64)) error
	Stop() error
}

// Session is one conversation from Connect to Disconnect. All exported
// methods are safe for concurrent use.
type Session struct {
	cfg        Config
	dial       DialFunc
	capture    Capture
	openOutput func() (playback.Output, error)
	log        *slog.Logger

	mu       sync.Mutex
	state    ConnState
	failErr  error
	openedAt time.Time
	closedAt time.Time

	transport Transport
	sched     *playback.Scheduler
	agg       *transcript.Aggregator
	vad       *audiocapture.Detector

	sendQ    chan []byte
	done     chan struct{}
	events   chan Event
	finished chan struct{}

	stopOnce   sync.Once
	finishOnce sync.Once
	wg         sync.WaitGroup
}

// New builds a session against the real microphone, speaker, and agent
// endpoint.
func New(cfg Config) *Session {
	return &Session{
		cfg:     cfg,
		capture: audiocapture.New(audiocapture.DefaultDevice()),
		dial: func(ctx context.Context, c agent.ClientConfig) (Transport, error) {
			return agent.Dial(ctx, c)
		},
		openOutput: playback.OpenOutput,
		log:        slog.Default(),
		agg:        transcript.New(),
		vad:        audiocapture.NewDetector(speechThreshold, 0, 0),
		events:     make(chan Event, 64),
		finished:   make(chan struct{}),
	}
}

// Events delivers transcript updates, loudness levels, and lifecycle changes.
// The channel closes after the Closed event. The consumer must keep receiving
// until the channel closes: the terminal events are delivered, not dropped,
// so an abandoned channel leaves Disconnect waiting for the handoff.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Status reports the current connection state.
func (s *Session) Status() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats summarizes a session for the end-of-run display.
type Stats struct {
	Duration      time.Duration
	UserMessages  int
	AgentMessages int
}

// Stats reports how long the session has been (or was) open and how many
// messages each side produced.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	opened, closed := s.openedAt, s.closedAt
	s.mu.Unlock()

	var st Stats
	if !opened.IsZero() {
		end := closed
		if end.IsZero() {
			end = time.Now()
		}
		st.Duration = end.Sub(opened)
	}
	for _, m := range s.agg.Messages() {
		if m.Role == transcript.RoleUser {
			st.UserMessages++
		} else {
			st.AgentMessages++
		}
	}
	return st
}

// Send queues one frame of microphone audio for transmission. Frames arriving
// while the session is not open are silently dropped, as is the newest frame
// when the queue is full; the capture callback must never block.
func (s *Session) Send(pcm []byte) {
	// TryLock keeps the audio callback from blocking behind Connect or
	// Disconnect; a frame landing mid-transition is dropped anyway.
	if !s.mu.TryLock() {
		return
	}
	open := s.state == StateOpen
	q := s.sendQ
	s.mu.Unlock()
	if !open {
		return
	}
	select {
	case q <- pcm:
	default:
		s.log.Debug("send queue full, dropping frame", "bytes", len(pcm))
	}
}

// Transcript returns a snapshot of the conversation so far.
func (s *Session) Transcript() []transcript.Message {
	return s.agg.Messages()
}

// ExportTranscript renders the conversation as role-tagged plain text.
func (s *Session) ExportTranscript() string {
	return s.agg.Export()
}

// Connect brings up the microphone, the agent connection, and the playback
// output, in that order, releasing everything already acquired if a later
// step fails. Calling Connect on a session that is already connecting or open
// is a no-op.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnecting, StateOpen:
		return nil
	case StateClosing, StateClosed, StateFailed:
		return ErrSessionClosed
	}
	s.state = StateConnecting

	s.sendQ = make(chan []byte, sendQueueSize)
	s.done = make(chan struct{})

	if err := s.capture.Start(s.onFrame, s.onLevel); err != nil {
		s.state = StateIdle
		return &DeviceError{Op: "capture start", Err: err}
	}

	voice := s.cfg.Voice
	if voice == "" {
		voice = types.DefaultVoice
	}
	transport, err := s.dial(ctx, agent.ClientConfig{
		URL:               s.cfg.URL,
		APIKey:            s.cfg.APIKey,
		Model:             s.cfg.Model,
		SystemInstruction: agent.BuildInstruction(s.cfg.Mode, s.cfg.Scenario),
		Voice:             voice,
	})
	if err != nil {
		s.unwindCapture()
		s.state = StateIdle
		return &TransportError{Op: "dial", Err: err}
	}

	out, err := s.openOutput()
	if err != nil {
		if cerr := transport.Close(); cerr != nil {
			s.log.Warn("transport close during unwind", "error", cerr)
		}
		s.unwindCapture()
		s.state = StateIdle
		return &DeviceError{Op: "playback open", Err: err}
	}

	s.transport = transport
	s.sched = playback.NewScheduler(out)
	s.state = StateOpen
	s.openedAt = time.Now()

	s.wg.Add(2)
	go s.sendLoop()
	go s.routeLoop()
	go s.reap()

	s.emit(Opened{})
	return nil
}

func (s *Session) unwindCapture() {
	if err := s.capture.Stop(); err != nil {
		s.log.Warn("capture stop during unwind", "error", err)
	}
}

// Disconnect tears the session down and blocks until the Closed event has
// been emitted, so the Events consumer must stay active until the channel
// closes (run Disconnect off the consumer's goroutine, as a signal handler
// naturally is). It is idempotent and never errors.
func (s *Session) Disconnect() {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateClosed
		s.mu.Unlock()
		s.finish()
		return
	case StateClosed, StateFailed, StateClosing:
		s.mu.Unlock()
		<-s.finished
		return
	}
	s.state = StateClosing
	s.mu.Unlock()

	s.teardown()
	<-s.finished
}

// teardown signals done before anything else: capture.Stop joins in-flight
// callbacks, and a callback can be parked in emit waiting on done, so the
// reverse order deadlocks. Frames arriving in the gap are dropped by Send's
// state check.
func (s *Session) teardown() {
	s.stopOnce.Do(func() {
		close(s.done)
		if err := s.capture.Stop(); err != nil {
			s.log.Warn("capture stop", "error", err)
		}
		if err := s.transport.Close(); err != nil {
			s.log.Warn("transport close", "error", err)
		}
		if err := s.sched.Close(); err != nil {
			s.log.Warn("playback close", "error", err)
		}
	})
}

// fail records a fatal error and tears down. Errors arriving while already
// closing are ignored; the first failure wins.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state != StateOpen {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.failErr = err
	s.mu.Unlock()
	s.teardown()
}

// reap waits for the workers, then emits the terminal events and closes the
// event channel. Exactly one Closed is ever delivered.
func (s *Session) reap() {
	s.wg.Wait()
	s.mu.Lock()
	err := s.failErr
	if s.state == StateClosing {
		s.state = StateClosed
	}
	s.closedAt = time.Now()
	s.mu.Unlock()
	if err != nil {
		s.events <- ErrorEvent{Err: err}
	}
	s.finish()
}

func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.events <- Closed{}
		close(s.events)
		close(s.finished)
	})
}

// onFrame runs on the capture callback.
func (s *Session) onFrame(pcm []byte) {
	s.Send(pcm)
}

// onLevel runs on the capture callback. Loudness is best-effort UI feedback;
// a full event channel drops it. Speech edges ride the same path.
func (s *Session) onLevel(level float64) {
	select {
	case s.events <- LevelEvent{RMS: level}:
	default:
	}
	switch s.vad.Process(level, time.Now()) {
	case audiocapture.EdgeSpeechStart:
		s.emit(SpeakingEvent{Active: true})
	case audiocapture.EdgeSpeechEnd:
		s.emit(SpeakingEvent{Active: false})
	}
}

func (s *Session) sendLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case pcm := <-s.sendQ:
			if err := s.transport.SendAudio(pcm); err != nil {
				s.fail(&TransportError{Op: "send", Err: err})
				return
			}
		}
	}
}

func (s *Session) routeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-s.transport.Messages():
			if !ok {
				s.fail(&TransportError{Op: "read", Err: errors.New("connection closed by remote")})
				return
			}
			s.handle(msg)
		case err := <-s.transport.Errs():
			s.fail(&TransportError{Op: "read", Err: err})
			return
		}
	}
}

// handle dispatches one server message. Fields are independent, so every
// present field is acted on. Interruption runs first: any audio riding the
// same message belongs to the turn that starts after the cut.
func (s *Session) handle(msg agent.ServerMessage) {
	if msg.Interrupted {
		s.sched.Interrupt()
		s.agg.SealTurn()
		s.emitLastMessage()
	}
	if msg.InputTranscription != nil {
		s.agg.Append(transcript.RoleUser, msg.InputTranscription.Text)
		s.emitLastMessage()
	}
	if msg.OutputTranscription != nil {
		s.agg.Append(transcript.RoleAgent, msg.OutputTranscription.Text)
		s.emitLastMessage()
	}
	if msg.Audio != nil {
		pcm, err := msg.Audio.Bytes()
		if err == nil {
			err = s.sched.Enqueue(pcm)
		}
		if err != nil {
			// A bad chunk costs a playback gap, not the session.
			s.log.Debug("dropping audio chunk", "error", err)
		}
	}
	if msg.TurnComplete {
		s.agg.SealTurn()
		s.emitLastMessage()
	}
}

func (s *Session) emitLastMessage() {
	msgs := s.agg.Messages()
	if len(msgs) == 0 {
		return
	}
	s.emit(MessageEvent{Message: msgs[len(msgs)-1]})
}

// emit delivers a lifecycle or transcript event, giving up if the session is
// tearing down and nobody is draining.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}
