package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gluk-w/aiterm/internal/assistant"
	"github.com/gluk-w/aiterm/internal/config"
)

// AI is set from main.go during init.
var AI *assistant.Client

// Personas is the preset list loaded at startup.
var Personas []config.Persona

// ModelCache holds the model list last reported by the backend. It is
// refreshed by the background cron job and by explicit probes, so requests
// naming a cached model rarely fail server-side for a stale name.
type ModelCache struct {
	mu     sync.Mutex
	models []string
}

// Models is set from main.go during init.
var Models = &ModelCache{}

// Refresh re-queries the backend and replaces the cached list. Errors leave
// the previous list in place.
func (c *ModelCache) Refresh(ctx context.Context) error {
	if AI == nil {
		return fmt.Errorf("assistant client not initialized")
	}
	models, err := AI.ListModels(ctx)
	if err != nil {
		return err
	}
	c.Set(models)
	return nil
}

func (c *ModelCache) Set(models []string) {
	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
}

func (c *ModelCache) Get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// RefreshModels is the cron entry point for the periodic model refresh.
func RefreshModels() {
	ctx, cancel := context.WithTimeout(context.Background(), config.Cfg.ProbeTimeout)
	defer cancel()
	if err := Models.Refresh(ctx); err != nil {
		log.Printf("[assistant] model refresh failed: %v", err)
	}
}

// GetModels returns the known model list, falling back to a live query when
// the cache is empty.
func GetModels(w http.ResponseWriter, r *http.Request) {
	models := Models.Get()
	if len(models) == 0 {
		if err := Models.Refresh(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		models = Models.Get()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "models": models})
}

type connectRequest struct {
	URL string `json:"url"`
}

// ConnectAssistant probes the backend (optionally at a user-supplied URL)
// and returns its model list. Used for initial auto-connect and for
// user-triggered reconnects.
func ConnectAssistant(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url := req.URL
	if url == "" {
		url = AI.Host()
	}

	ok, models, err := AI.Probe(r.Context(), url)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Connection failed: %v", err))
		return
	}

	Models.Set(models)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Connected to Ollama at %s", url),
		"models":  models,
	})
}

// GetPersonas returns the persona presets.
func GetPersonas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "personas": Personas})
}
