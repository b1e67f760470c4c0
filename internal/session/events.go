package session

import (
	"encoding/json"

	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/history"
)

// Inbound event names.
const (
	EventSSHConnect        = "ssh_connect"
	EventSSHDisconnect     = "ssh_disconnect"
	EventSSHCommand        = "ssh_command"
	EventAIPrompt          = "ai_prompt"
	EventAIGenerateCommand = "ai_generate_command"
	EventGetHistory        = "get_history"
	EventClearHistory      = "clear_history"
)

// Outbound event names.
const (
	EventConnectionResponse = "connection_response"
	EventSSHStatus          = "ssh_status"
	EventCommandOutput      = "command_output"
	EventAIResponse         = "ai_response"
	EventCommandGenerated   = "command_generated"
	EventAICommandResult    = "ai_command_result"
	EventHistory            = "history"
	EventHistoryCleared     = "history_cleared"
)

// Event is one inbound message from the browser.
type Event struct {
	Name string
	Data json.RawMessage
}

// Emitter delivers outbound events to the session's own browser tab only.
type Emitter interface {
	Emit(event string, payload interface{}) error
}

type connectPayload struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file"`
	// SaveAs registers the profile under this name after a successful connect.
	SaveAs string `json:"save_as"`
}

type commandPayload struct {
	Command string `json:"command"`
}

type promptPayload struct {
	Prompt  string          `json:"prompt"`
	Model   string          `json:"model"`
	Persona *config.Persona `json:"persona"`
}

type generatePayload struct {
	Description string          `json:"description"`
	Model       string          `json:"model"`
	Persona     *config.Persona `json:"persona"`
	AutoRun     bool            `json:"auto_run"`
}

type sshStatusPayload struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

type commandOutputPayload struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
}

type aiResponsePayload struct {
	Success  bool              `json:"success"`
	Response string            `json:"response,omitempty"`
	Error    string            `json:"error,omitempty"`
	History  []history.Message `json:"history"`
}

type commandGeneratedPayload struct {
	Success bool   `json:"success"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
	AutoRun bool   `json:"auto_run"`
}

type aiCommandResultPayload struct {
	Success bool              `json:"success"`
	Output  string            `json:"output,omitempty"`
	Error   string            `json:"error,omitempty"`
	Type    string            `json:"type"`
	History []history.Message `json:"history,omitempty"`
}

type historyPayload struct {
	Success bool              `json:"success"`
	History []history.Message `json:"history"`
}

type historyClearedPayload struct {
	Success bool `json:"success"`
}

type welcomePayload struct {
	Data string `json:"data"`
}
