// Package agent implements the streaming protocol to the remote
// conversational speech agent: one websocket per session, a JSON setup frame
// at connect time, then interleaved audio and transcript messages in both
// directions.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultURL is the default agent endpoint.
const DefaultURL = "wss://live.parlo.dev/v1/session"

// ClientConfig holds everything needed to open one session.
type ClientConfig struct {
	URL               string
	APIKey            string
	Model             string
	SystemInstruction string
	Voice             string
}

// Client is a live connection to the agent. Writes are serialized by an
// internal mutex; reads happen on a dedicated loop feeding Messages.
type Client struct {
	conn  *websocket.Conn
	msgCh chan ServerMessage
	errCh chan error
	done  chan struct{}

	closeOnce sync.Once

	// writeMu guards conn writes; gorilla/websocket allows at most one
	// concurrent writer.
	writeMu sync.Mutex
}

// Dial opens the websocket, sends the setup frame, and starts the read loop.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial agent: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	c := &Client{
		conn:  conn,
		msgCh: make(chan ServerMessage, 64),
		errCh: make(chan error, 1),
		done:  make(chan struct{}),
	}

	setup := clientMessage{Setup: &Setup{
		Model:               cfg.Model,
		SystemInstruction:   cfg.SystemInstruction,
		Voice:               cfg.Voice,
		InputTranscription:  true,
		OutputTranscription: true,
	}}
	if err := c.writeJSON(setup); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send setup: %w", err)
	}

	go c.readLoop()
	return c, nil
}

// SendAudio transmits one captured frame of raw PCM16LE samples.
func (c *Client) SendAudio(pcm []byte) error {
	return c.writeJSON(clientMessage{Audio: newAudioChunk(pcm, InputSampleRate)})
}

// Messages returns the inbound message stream. The channel is closed when the
// connection ends for any reason.
func (c *Client) Messages() <-chan ServerMessage {
	return c.msgCh
}

// Errs reports a terminal transport failure, if one occurs. At most one error
// is ever delivered.
func (c *Client) Errs() <-chan error {
	return c.errCh
}

// Close tears down the connection. Safe to call multiple times and
// concurrently with reads.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), closeDeadline())
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer close(c.msgCh)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				// Local close; not an error.
			case c.errCh <- fmt.Errorf("read agent message: %w", err):
			default:
			}
			return
		}

		msg, err := ParseServerMessage(data)
		if err != nil {
			slog.Warn("skipping malformed agent message", "error", err, "len", len(data))
			continue
		}

		select {
		case <-c.done:
			return
		case c.msgCh <- msg:
		}
	}
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}
