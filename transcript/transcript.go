// Package transcript accumulates streamed transcription fragments into an
// ordered conversation history.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role identifies the speaker of a transcript message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one contiguous utterance by a single speaker. While Complete is
// false the message is still open and subsequent same-role fragments are
// merged into it.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Complete  bool
	CreatedAt time.Time
}

// Aggregator merges transcription fragments into messages. A fragment joins
// the last message when the roles match and the message is still open;
// otherwise it starts a new one. All methods are safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	messages []Message
	now      func() time.Time
}

func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// Append adds a fragment of text spoken by role. A role switch seals the
// previous message even if no explicit turn boundary was observed.
func (a *Aggregator) Append(role Role, text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.messages); n > 0 {
		last := &a.messages[n-1]
		if last.Role == role && !last.Complete {
			last.Text += text
			return
		}
		last.Complete = true
	}
	a.messages = append(a.messages, Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: a.now(),
	})
}

// SealTurn marks the last message complete. The next fragment starts a new
// message regardless of role.
func (a *Aggregator) SealTurn() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.messages); n > 0 {
		a.messages[n-1].Complete = true
	}
}

// Messages returns a snapshot of the history in arrival order.
func (a *Aggregator) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Export renders the history as role-tagged plain text, one message per line.
func (a *Aggregator) Export() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var b strings.Builder
	for _, m := range a.messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
	}
	return b.String()
}

// Reset discards the history.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.messages = nil
	a.mu.Unlock()
}
