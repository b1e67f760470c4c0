// Package assistant is the client for the local language-model backend
// (the Ollama HTTP API). All calls are stateless with respect to the
// backend; callers re-send the trimmed history window on every request.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/history"
)

// Client talks to one assistant backend. The zero timeout fields fall back
// to sane bounds so a misconfigured client cannot hang a session forever.
type Client struct {
	host         string
	defaultModel string
	httpClient   *http.Client
	probeTimeout time.Duration
}

func New(host, defaultModel string, generateTimeout, probeTimeout time.Duration) *Client {
	if generateTimeout <= 0 {
		generateTimeout = 300 * time.Second
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Client{
		host:         strings.TrimRight(host, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: generateTimeout},
		probeTimeout: probeTimeout,
	}
}

// CompleteRequest is a free-form chat completion.
type CompleteRequest struct {
	Prompt  string
	History []history.Message
	Model   string
	Persona config.Persona
}

// GenerateRequest asks for exactly one shell command.
type GenerateRequest struct {
	Description string
	History     []history.Message
	Model       string
	Persona     config.Persona
}

// Complete sends a chat prompt with the trailing history window as context
// and returns the model's reply.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	prompt := buildChatPrompt(req.Persona, req.History, req.Prompt)
	reply, err := c.generate(ctx, req.Model, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errorf(KindModel, "model returned an empty reply")
	}
	return reply, nil
}

// GenerateCommand asks the model for a single shell command and normalizes
// the reply. An unusable reply is a KindModel error, never an empty command.
func (c *Client) GenerateCommand(ctx context.Context, req GenerateRequest) (string, error) {
	prompt := buildCommandPrompt(req.Persona, req.History, req.Description)
	reply, err := c.generate(ctx, req.Model, prompt)
	if err != nil {
		return "", err
	}
	command := NormalizeCommand(reply)
	if command == "" {
		return "", errorf(KindModel, "model reply contained no usable command")
	}
	return command, nil
}

// ListModels returns the model names reported by the backend, in backend order.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	return listModels(ctx, c.httpClient, c.host, c.probeTimeout)
}

// Probe checks whether the backend at url is reachable and returns its model
// list. Bounded by the probe timeout; used for auto-connect and reconnect.
func (c *Client) Probe(ctx context.Context, url string) (bool, []string, error) {
	host := strings.TrimRight(url, "/")
	if host == "" {
		host = c.host
	}
	models, err := listModels(ctx, c.httpClient, host, c.probeTimeout)
	if err != nil {
		return false, nil, err
	}
	return true, models, nil
}

// Host returns the configured backend base address.
func (c *Client) Host() string {
	return c.host
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.defaultModel
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", errorf(KindConnect, "marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errorf(KindConnect, "create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errorf(KindConnect, "request failed: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errorf(KindConnect, "read response: %v", err)
	}
	if resp.StatusCode >= 300 {
		return "", errorf(KindConnect, "HTTP %d: %s", resp.StatusCode, compact(payload, 240))
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", errorf(KindModel, "non-JSON payload from backend")
	}
	return parsed.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func listModels(ctx context.Context, client *http.Client, host string, timeout time.Duration) ([]string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return nil, errorf(KindConnect, "create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errorf(KindConnect, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, errorf(KindConnect, "HTTP %d: %s", resp.StatusCode, compact(body, 240))
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errorf(KindModel, "decode model list: %v", err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func compact(b []byte, maxLen int) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
