// Package session is the per-connection state machine at the core of the
// terminal: it owns the SSH connection lifecycle, the conversation logs and
// the in-flight assistant flag, routes inbound events to the command
// executor or the assistant client, and emits outbound events in order.
//
// Each session has exactly one worker goroutine consuming its event queue,
// so events for a session are handled strictly one at a time while slow
// backend calls block only that session.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gluk-w/aiterm/internal/assistant"
	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/history"
	"github.com/gluk-w/aiterm/internal/logutil"
	"github.com/gluk-w/aiterm/internal/sshexec"
	"github.com/gluk-w/aiterm/internal/telemetry"
)

const eventQueueSize = 32

// Config bounds the conversation logs and the context window.
type Config struct {
	HistoryMax     int
	Window         int
	DefaultPersona config.Persona
}

func (c *Config) applyDefaults() {
	if c.HistoryMax <= 0 {
		c.HistoryMax = 100
	}
	if c.Window <= 0 {
		c.Window = 10
	}
	if c.DefaultPersona.Name == "" {
		c.DefaultPersona = config.DefaultPersona
	}
}

// Manager owns all live sessions, keyed by session ID. Sessions never share
// state with each other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	cfg         Config
	assistant   Assistant
	store       CredentialStore
	newExecutor func() Executor
}

// NewManager creates a session manager. newExecutor is called once per
// session; store may be nil when credential persistence is not wanted.
func NewManager(cfg Config, ai Assistant, store CredentialStore, newExecutor func() Executor) *Manager {
	cfg.applyDefaults()
	return &Manager{
		sessions:    make(map[string]*Session),
		cfg:         cfg,
		assistant:   ai,
		store:       store,
		newExecutor: newExecutor,
	}
}

// Create registers a new session bound to the given emitter and starts its
// worker.
func (m *Manager) Create(emitter Emitter) *Session {
	s := &Session{
		ID:      uuid.New().String(),
		emitter: emitter,
		exec:    m.newExecutor(),
		chat:    history.NewLog(m.cfg.HistoryMax),
		term:    history.NewLog(m.cfg.HistoryMax),
		state:   StateIdle,
		events:  make(chan Event, eventQueueSize),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	go m.worker(s)

	m.emit(s, EventConnectionResponse, welcomePayload{Data: "Connected to AI Terminal"})
	log.Printf("[session] created %s", s.ID)
	return s
}

// Remove destroys a session. The SSH handle is force-closed before Remove
// returns, so a disconnecting browser cannot leak a channel.
func (m *Manager) Remove(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	s.close()
	log.Printf("[session] removed %s", s.ID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispatch queues an inbound event for the session. Events are never
// dropped; when the queue is full the caller blocks, which stalls only the
// one connection that is flooding.
func (m *Manager) Dispatch(s *Session, ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (m *Manager) worker(s *Session) {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			m.handle(context.Background(), s, ev)
		}
	}
}

func (m *Manager) handle(ctx context.Context, s *Session, ev Event) {
	telemetry.CountEvent(ctx, ev.Name)

	switch ev.Name {
	case EventSSHConnect:
		m.handleSSHConnect(ctx, s, ev)
	case EventSSHDisconnect:
		m.handleSSHDisconnect(s)
	case EventSSHCommand:
		m.handleSSHCommand(ctx, s, ev)
	case EventAIPrompt:
		m.handleAIPrompt(ctx, s, ev)
	case EventAIGenerateCommand:
		m.handleGenerateCommand(ctx, s, ev)
	case EventGetHistory:
		m.emit(s, EventHistory, historyPayload{Success: true, History: s.chat.Snapshot()})
	case EventClearHistory:
		s.chat.Clear()
		s.term.Clear()
		m.emit(s, EventHistoryCleared, historyClearedPayload{Success: true})
	default:
		log.Printf("[session] %s: unknown event %q", s.ID, logutil.SanitizeForLog(ev.Name))
	}
}

func (m *Manager) handleSSHConnect(ctx context.Context, s *Session, ev Event) {
	var p connectPayload
	if err := unmarshal(ev, &p); err != nil {
		m.emit(s, EventSSHStatus, sshStatusPayload{Message: "Invalid connect request"})
		return
	}

	p.Host = strings.TrimSpace(p.Host)
	p.Username = strings.TrimSpace(p.Username)
	if p.Host == "" {
		m.emit(s, EventSSHStatus, sshStatusPayload{Message: "Host is required"})
		return
	}
	if p.Username == "" {
		m.emit(s, EventSSHStatus, sshStatusPayload{Message: "Username is required"})
		return
	}
	if p.Port <= 0 {
		p.Port = 22
	}

	target := sshexec.Target{
		Host:     p.Host,
		Port:     p.Port,
		Username: p.Username,
		Password: p.Password,
		KeyFile:  p.KeyFile,
	}

	// Connect tears down any previous channel itself, so a reconnect never
	// leaves two live connections.
	s.setState(StateConnecting)
	log.Printf("[session] %s: connecting to %s@%s", s.ID,
		logutil.SanitizeForLog(target.Username), logutil.SanitizeForLog(target.Addr()))

	if err := s.exec.Connect(ctx, target); err != nil {
		s.setState(StateIdle)
		log.Printf("[session] %s: connect failed: %v", s.ID, err)
		m.emit(s, EventSSHStatus, sshStatusPayload{Message: fmt.Sprintf("Connection failed: %v", err)})
		return
	}

	s.setState(StateConnected)
	s.cwd = ""

	// Persist the now-working credentials; failure to save never fails the
	// connect itself.
	if m.store != nil {
		if err := m.store.SaveCredentials(target); err != nil {
			log.Printf("[session] %s: save credentials: %v", s.ID, err)
		}
		if p.SaveAs != "" {
			if err := m.store.SaveHost(p.SaveAs, target); err != nil {
				log.Printf("[session] %s: save host %q: %v", s.ID, logutil.SanitizeForLog(p.SaveAs), err)
			}
		}
	}

	m.emit(s, EventSSHStatus, sshStatusPayload{Connected: true, Message: "Connected successfully"})
}

func (m *Manager) handleSSHDisconnect(s *Session) {
	s.exec.Disconnect()
	s.setState(StateIdle)
	s.cwd = ""
	m.emit(s, EventSSHStatus, sshStatusPayload{Message: "Disconnected"})
}

func (m *Manager) handleSSHCommand(ctx context.Context, s *Session, ev Event) {
	var p commandPayload
	if err := unmarshal(ev, &p); err != nil || strings.TrimSpace(p.Command) == "" {
		m.emit(s, EventCommandOutput, commandOutputPayload{Output: "No command provided"})
		return
	}

	if s.State() != StateConnected {
		m.emit(s, EventCommandOutput, commandOutputPayload{Output: "Not connected to SSH server"})
		return
	}

	output, ok := m.runRemote(ctx, s, p.Command)
	telemetry.CountCommand(ctx, "terminal", ok)
	// Raw terminal output is ephemeral: it never enters conversation history.
	m.emit(s, EventCommandOutput, commandOutputPayload{Success: ok, Output: output})
}

func (m *Manager) handleAIPrompt(ctx context.Context, s *Session, ev Event) {
	var p promptPayload
	if err := unmarshal(ev, &p); err != nil || strings.TrimSpace(p.Prompt) == "" {
		m.emit(s, EventAIResponse, aiResponsePayload{Error: "No prompt provided", History: s.chat.Snapshot()})
		return
	}

	window := s.chat.Window(m.cfg.Window)
	s.chat.Append(history.Message{Role: history.RoleUser, Content: p.Prompt})

	s.setBusy(true)
	reply, err := m.assistant.Complete(ctx, assistant.CompleteRequest{
		Prompt:  p.Prompt,
		History: window,
		Model:   p.Model,
		Persona: m.persona(p.Persona),
	})
	s.setBusy(false)
	telemetry.CountAssistantRequest(ctx, "chat", err == nil)

	if err != nil {
		s.chat.Append(history.Message{Role: history.RoleAssistant, Content: err.Error(), Error: true})
		m.emit(s, EventAIResponse, aiResponsePayload{Error: err.Error(), History: s.chat.Snapshot()})
		return
	}

	s.chat.Append(history.Message{Role: history.RoleAssistant, Content: reply})
	m.emit(s, EventAIResponse, aiResponsePayload{Success: true, Response: reply, History: s.chat.Snapshot()})
}

func (m *Manager) handleGenerateCommand(ctx context.Context, s *Session, ev Event) {
	var p generatePayload
	if err := unmarshal(ev, &p); err != nil || strings.TrimSpace(p.Description) == "" {
		m.emit(s, EventCommandGenerated, commandGeneratedPayload{Error: "No description provided"})
		return
	}

	window := s.term.Window(m.cfg.Window)
	s.term.Append(history.Message{Role: history.RoleUser, Content: p.Description})

	s.setBusy(true)
	command, err := m.assistant.GenerateCommand(ctx, assistant.GenerateRequest{
		Description: p.Description,
		History:     window,
		Model:       p.Model,
		Persona:     m.persona(p.Persona),
	})
	s.setBusy(false)
	telemetry.CountAssistantRequest(ctx, "generate", err == nil)

	if err != nil {
		s.term.Append(history.Message{Role: history.RoleAssistant, Content: err.Error(), Error: true})
		m.emit(s, EventCommandGenerated, commandGeneratedPayload{Error: err.Error(), AutoRun: p.AutoRun})
		return
	}

	s.term.Append(history.Message{Role: history.RoleAssistant, Content: command})
	m.emit(s, EventCommandGenerated, commandGeneratedPayload{Success: true, Command: command, AutoRun: p.AutoRun})

	// Generated commands can be destructive: without auto-run the browser
	// stages the command in an editable input instead of executing it.
	if !p.AutoRun {
		return
	}

	if s.State() != StateConnected {
		m.emit(s, EventAICommandResult, aiCommandResultPayload{
			Error: "Not connected to SSH server",
			Type:  "error",
		})
		return
	}

	output, ok := m.runRemote(ctx, s, command)
	telemetry.CountCommand(ctx, "assistant", ok)

	result := aiCommandResultPayload{
		Success: ok,
		Output:  fmt.Sprintf("Command: %s\n\nResult: %s", command, output),
		Type:    "success",
		History: s.term.Snapshot(),
	}
	if !ok {
		result.Type = "error"
	}
	m.emit(s, EventAICommandResult, result)
}

// runRemote executes a command on the session's SSH connection, keeping the
// tracked working directory up to date. A failed command never mutates SSH
// state; only explicit disconnect or transport teardown does.
func (m *Manager) runRemote(ctx context.Context, s *Session, command string) (string, bool) {
	trimmed := strings.TrimSpace(command)

	// A leading cd changes the tracked directory for subsequent commands.
	if s.cwd != "" && (trimmed == "cd" || strings.HasPrefix(trimmed, "cd ")) {
		res, err := s.exec.Run(ctx, fmt.Sprintf("cd %q && %s && pwd", s.cwd, trimmed))
		if err != nil {
			return failureOutput(res, err), false
		}
		if dir := lastLine(res.Output); dir != "" {
			s.cwd = dir
		}
		return s.cwd, true
	}

	run := command
	if s.cwd != "" {
		run = fmt.Sprintf("cd %q && %s", s.cwd, command)
	}

	res, err := s.exec.Run(ctx, run)
	if err != nil {
		return failureOutput(res, err), false
	}

	// Seed the tracked directory from the first successful command.
	if s.cwd == "" {
		if pwd, perr := s.exec.Run(ctx, "pwd"); perr == nil {
			s.cwd = lastLine(pwd.Output)
		}
	}
	return res.Output, true
}

func (m *Manager) persona(p *config.Persona) config.Persona {
	if p == nil || p.Name == "" {
		return m.cfg.DefaultPersona
	}
	if p.Role == "" {
		return config.Persona{Name: p.Name, Role: m.cfg.DefaultPersona.Role}
	}
	return *p
}

func (m *Manager) emit(s *Session, event string, payload interface{}) {
	if err := s.emitter.Emit(event, payload); err != nil {
		log.Printf("[session] %s: emit %s: %v", s.ID, event, err)
	}
}

func unmarshal(ev Event, v interface{}) error {
	if len(ev.Data) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(ev.Data, v)
}

// failureOutput prefers the command's captured output over the error string,
// matching what a terminal user expects to see.
func failureOutput(res sshexec.Result, err error) string {
	if res.Output != "" {
		return res.Output
	}
	return err.Error()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
