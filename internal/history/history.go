// Package history holds the per-session conversation log: an append-only,
// front-trimmed sliding window of chat messages. The log is memory resident
// and dies with the session.
package history

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in an assistant conversation. Error marks the message
// as a failure report rather than real content, so the UI can style it.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}

// Log is a bounded, ordered message log. It is not safe for concurrent use;
// each session's worker is the only writer.
type Log struct {
	max      int
	messages []Message
}

// NewLog creates a log that retains at most max messages. A max of 0 or less
// means unbounded.
func NewLog(max int) *Log {
	return &Log{max: max}
}

// Append adds a message and trims the oldest entries in the same call, so the
// log never exceeds its bound between operations.
func (l *Log) Append(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	l.messages = append(l.messages, msg)
	if l.max > 0 && len(l.messages) > l.max {
		l.messages = l.messages[len(l.messages)-l.max:]
	}
}

// Window returns the most recent n messages in original order.
func (l *Log) Window(n int) []Message {
	if n <= 0 {
		return nil
	}
	start := 0
	if len(l.messages) > n {
		start = len(l.messages) - n
	}
	out := make([]Message, len(l.messages)-start)
	copy(out, l.messages[start:])
	return out
}

// Snapshot returns a full ordered copy for re-rendering.
func (l *Log) Snapshot() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	return len(l.messages)
}

func (l *Log) Clear() {
	l.messages = nil
}
