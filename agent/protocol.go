package agent

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// Wire audio parameters. Outbound microphone audio is 16 kHz mono PCM,
// inbound synthesized speech is 24 kHz mono PCM, both 16-bit little-endian.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
)

// ErrEmptyAudio is returned when an audio chunk carries no payload.
var ErrEmptyAudio = errors.New("agent: empty audio payload")

// clientMessage is the envelope for everything we send after the websocket
// is established. Exactly one field is set per message.
type clientMessage struct {
	Setup *Setup      `json:"setup,omitempty"`
	Audio *AudioChunk `json:"audio,omitempty"`
}

// Setup is the first frame on a new connection. It fixes the session
// configuration for the connection's lifetime; the server rejects a second
// setup on the same socket.
type Setup struct {
	Model               string `json:"model,omitempty"`
	SystemInstruction   string `json:"systemInstruction"`
	Voice               string `json:"voice,omitempty"`
	InputTranscription  bool   `json:"inputTranscription"`
	OutputTranscription bool   `json:"outputTranscription"`
}

// AudioChunk carries base64-encoded raw PCM samples.
type AudioChunk struct {
	Data         string `json:"data"`
	SampleRateHz int    `json:"sampleRateHz,omitempty"`
}

// Bytes decodes the base64 payload.
func (c *AudioChunk) Bytes() ([]byte, error) {
	if c == nil || c.Data == "" {
		return nil, ErrEmptyAudio
	}
	return base64.StdEncoding.DecodeString(c.Data)
}

// newAudioChunk encodes raw PCM bytes for transmission.
func newAudioChunk(pcm []byte, sampleRateHz int) *AudioChunk {
	return &AudioChunk{
		Data:         base64.StdEncoding.EncodeToString(pcm),
		SampleRateHz: sampleRateHz,
	}
}

// TranscriptionFragment is a piece of streamed transcript text. Fragments
// accumulate into turns; they are not aligned to word boundaries.
type TranscriptionFragment struct {
	Text string `json:"text"`
}

// ServerMessage is one inbound protocol message. Any subset of its fields may
// be present; every present field must be acted on, so consumers check each
// field independently rather than switching on a single message kind.
type ServerMessage struct {
	InputTranscription  *TranscriptionFragment `json:"inputTranscription,omitempty"`
	OutputTranscription *TranscriptionFragment `json:"outputTranscription,omitempty"`
	TurnComplete        bool                   `json:"turnComplete,omitempty"`
	Audio               *AudioChunk            `json:"audio,omitempty"`
	Interrupted         bool                   `json:"interrupted,omitempty"`
}

// ParseServerMessage unmarshals one inbound frame.
func ParseServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, err
	}
	return msg, nil
}
