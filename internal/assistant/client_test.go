package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/history"
)

// fakeBackend stands in for the Ollama HTTP API.
func fakeBackend(t *testing.T, reply string, models []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Stream {
			http.Error(w, "streaming not expected", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"response": reply})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		type model struct {
			Name string `json:"name"`
		}
		out := struct {
			Models []model `json:"models"`
		}{}
		for _, m := range models {
			out.Models = append(out.Models, model{Name: m})
		}
		json.NewEncoder(w).Encode(out)
	})
	return httptest.NewServer(mux)
}

func TestCompleteSendsPersonaAndHistory(t *testing.T) {
	var gotPrompt, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt, gotModel = req.Prompt, req.Model
		json.NewEncoder(w).Encode(map[string]string{"response": "the answer"})
	}))
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	reply, err := c.Complete(context.Background(), CompleteRequest{
		Prompt: "what is uptime",
		History: []history.Message{
			{Role: history.RoleUser, Content: "earlier question"},
			{Role: history.RoleAssistant, Content: "earlier answer"},
		},
		Persona: config.Persona{Name: "Assistant", Role: "Linux Expert"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "the answer" {
		t.Errorf("reply = %q", reply)
	}
	if gotModel != "llama2" {
		t.Errorf("model = %q, want default llama2", gotModel)
	}

	for _, want := range []string{
		"You are Assistant, a Linux Expert.",
		"Previous conversation context:",
		"User: earlier question",
		"Assistant: earlier answer",
		"User: what is uptime",
	} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
}

func TestCompleteModelOverride(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	if _, err := c.Complete(context.Background(), CompleteRequest{Prompt: "x", Model: "mistral"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if gotModel != "mistral" {
		t.Errorf("model = %q, want per-request override", gotModel)
	}
}

func TestCompleteEmptyReply(t *testing.T) {
	srv := fakeBackend(t, "   ", nil)
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	_, err := c.Complete(context.Background(), CompleteRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for empty reply")
	}
	if KindOf(err) != KindModel {
		t.Errorf("kind = %s, want model", KindOf(err))
	}
}

func TestCompleteBackendDown(t *testing.T) {
	srv := fakeBackend(t, "ok", nil)
	srv.Close() // connection refused from here on

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	_, err := c.Complete(context.Background(), CompleteRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}
	if KindOf(err) != KindConnect {
		t.Errorf("kind = %s, want connect", KindOf(err))
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	_, err := c.Complete(context.Background(), CompleteRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error for HTTP 404")
	}
	if KindOf(err) != KindConnect {
		t.Errorf("kind = %s, want connect", KindOf(err))
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error does not surface status: %v", err)
	}
}

func TestGenerateCommandNormalizes(t *testing.T) {
	srv := fakeBackend(t, "```bash\n$ df -h\n```", nil)
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	cmd, err := c.GenerateCommand(context.Background(), GenerateRequest{Description: "disk usage"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if cmd != "df -h" {
		t.Errorf("command = %q, want df -h", cmd)
	}
}

func TestGenerateCommandUnusableReply(t *testing.T) {
	srv := fakeBackend(t, "```\n```\n", nil)
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	_, err := c.GenerateCommand(context.Background(), GenerateRequest{Description: "do a thing"})
	if err == nil {
		t.Fatal("expected error for unusable reply")
	}
	if KindOf(err) != KindModel {
		t.Errorf("kind = %s, want model", KindOf(err))
	}
}

func TestListModels(t *testing.T) {
	srv := fakeBackend(t, "", []string{"llama2", "mistral", "codellama"})
	defer srv.Close()

	c := New(srv.URL, "llama2", time.Minute, time.Second)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	want := []string{"llama2", "mistral", "codellama"}
	if len(models) != len(want) {
		t.Fatalf("got %d models, want %d", len(models), len(want))
	}
	for i, w := range want {
		if models[i] != w {
			t.Errorf("models[%d] = %q, want %q", i, models[i], w)
		}
	}
}

func TestProbe(t *testing.T) {
	srv := fakeBackend(t, "", []string{"llama2"})
	defer srv.Close()

	c := New("http://localhost:1", "llama2", time.Minute, time.Second)

	ok, models, err := c.Probe(context.Background(), srv.URL)
	if err != nil || !ok {
		t.Fatalf("probe reachable backend: ok=%v err=%v", ok, err)
	}
	if len(models) != 1 || models[0] != "llama2" {
		t.Errorf("models = %v", models)
	}

	ok, _, err = c.Probe(context.Background(), "http://localhost:1")
	if ok || err == nil {
		t.Errorf("probe unreachable backend: ok=%v err=%v", ok, err)
	}
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:11434/", "llama2", 0, 0)
	if c.Host() != "http://localhost:11434" {
		t.Errorf("host = %q", c.Host())
	}
}
