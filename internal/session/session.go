package session

import (
	"context"
	"sync"

	"github.com/gluk-w/aiterm/internal/assistant"
	"github.com/gluk-w/aiterm/internal/history"
	"github.com/gluk-w/aiterm/internal/sshexec"
)

// State is the SSH side of a session's lifecycle. The assistant busy flag is
// tracked separately; the two are orthogonal.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
)

// Executor is the remote command side of a session. *sshexec.Executor is the
// production implementation; tests substitute fakes.
type Executor interface {
	Connect(ctx context.Context, target sshexec.Target) error
	Run(ctx context.Context, command string) (sshexec.Result, error)
	Disconnect()
	Connected() bool
}

// Assistant is the language-model side of a session.
type Assistant interface {
	Complete(ctx context.Context, req assistant.CompleteRequest) (string, error)
	GenerateCommand(ctx context.Context, req assistant.GenerateRequest) (string, error)
}

// CredentialStore receives working credentials after a successful connect.
type CredentialStore interface {
	SaveCredentials(t sshexec.Target) error
	SaveHost(name string, t sshexec.Target) error
}

// Session is one browser connection's complete state: at most one SSH
// connection, two conversation logs, and the in-flight assistant flag.
// All fields behind mu are mutated only by the session's worker; mu exists
// so other goroutines can observe state safely.
type Session struct {
	ID string

	emitter Emitter
	exec    Executor

	// chat feeds the AI Chat tab and is resynced to the browser; term is
	// context for interpreting terminal-side requests only.
	chat *history.Log
	term *history.Log

	// cwd is the tracked remote working directory, empty until the first
	// successful command.
	cwd string

	mu    sync.Mutex
	state State
	busy  bool

	events chan Event
	done   chan struct{}
	closed sync.Once
}

// State returns the SSH lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Busy reports whether an assistant request is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
}

// ChatHistory returns a snapshot of the chat conversation.
func (s *Session) ChatHistory() []history.Message {
	return s.chat.Snapshot()
}

// close releases the session's resources. The SSH handle is torn down
// immediately, before the worker has necessarily observed done.
func (s *Session) close() {
	s.closed.Do(func() {
		close(s.done)
		s.exec.Disconnect()
		s.setState(StateIdle)
	})
}
