package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gluk-w/aiterm/internal/assistant"
	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/database"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&database.SavedHost{}, &database.Setting{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	old := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = old })
}

func testRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Get("/api/settings", GetSettings)
	r.Post("/api/settings", UpdateSettings)
	r.Get("/api/hosts", GetHosts)
	r.Post("/api/hosts", SaveHost)
	r.Delete("/api/hosts/{name}", DeleteHost)
	r.Get("/api/assistant/models", GetModels)
	r.Post("/api/assistant/connect", ConnectAssistant)
	r.Get("/api/personas", GetPersonas)
	r.Get("/api/logs", GetServerLogs)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reqBody *strings.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	} else {
		reqBody = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("%s %s: non-JSON response %q", method, path, rec.Body.String())
	}
	return rec, parsed
}

func TestHealthCheck(t *testing.T) {
	rec, parsed := doRequest(t, testRouter(), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if parsed["status"] != "ok" {
		t.Errorf("body = %v", parsed)
	}
}

func TestSettingsRoundTripOverHTTP(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	body := `{
		"ssh": {"host": "10.0.0.5", "port": 2222, "username": "deploy", "password": "pw", "key_file": ""},
		"assistant": {"url": "http://localhost:11434", "model": "mistral", "ai_name": "Ops", "ai_role": "SRE", "auto_execute": true}
	}`
	rec, parsed := doRequest(t, r, http.MethodPost, "/api/settings", body)
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("update: status=%d body=%v", rec.Code, parsed)
	}

	rec, parsed = doRequest(t, r, http.MethodGet, "/api/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	s := parsed["settings"].(map[string]interface{})
	ssh := s["ssh"].(map[string]interface{})
	if ssh["host"] != "10.0.0.5" || ssh["username"] != "deploy" || ssh["password"] != "pw" {
		t.Errorf("ssh settings = %v", ssh)
	}
	ai := s["assistant"].(map[string]interface{})
	if ai["model"] != "mistral" || ai["auto_execute"] != true {
		t.Errorf("assistant settings = %v", ai)
	}
}

func TestUpdateSettingsBadBody(t *testing.T) {
	setupTestDB(t)
	rec, parsed := doRequest(t, testRouter(), http.MethodPost, "/api/settings", "{not json")
	if rec.Code != http.StatusBadRequest || parsed["success"] != false {
		t.Errorf("status=%d body=%v", rec.Code, parsed)
	}
}

func TestHostLifecycleOverHTTP(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	rec, parsed := doRequest(t, r, http.MethodPost, "/api/hosts",
		`{"name": "prod", "host": "10.0.0.1", "username": "root", "password": "pw"}`)
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("save: status=%d body=%v", rec.Code, parsed)
	}

	rec, parsed = doRequest(t, r, http.MethodGet, "/api/hosts", "")
	hosts := parsed["hosts"].([]interface{})
	if len(hosts) != 1 {
		t.Fatalf("hosts = %v", hosts)
	}
	h := hosts[0].(map[string]interface{})
	if h["name"] != "prod" || h["port"] != float64(22) || h["password"] != "pw" {
		t.Errorf("host = %v", h)
	}

	rec, parsed = doRequest(t, r, http.MethodDelete, "/api/hosts/prod", "")
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("delete: status=%d body=%v", rec.Code, parsed)
	}

	_, parsed = doRequest(t, r, http.MethodGet, "/api/hosts", "")
	if hosts, _ := parsed["hosts"].([]interface{}); len(hosts) != 0 {
		t.Errorf("hosts after delete = %v", hosts)
	}
}

func TestSaveHostValidation(t *testing.T) {
	setupTestDB(t)
	r := testRouter()

	rec, _ := doRequest(t, r, http.MethodPost, "/api/hosts", `{"host": "10.0.0.1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d", rec.Code)
	}
	rec, _ = doRequest(t, r, http.MethodPost, "/api/hosts", `{"name": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing host: status = %d", rec.Code)
	}
}

func fakeOllama(models []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
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
	}))
}

func setupAssistant(t *testing.T, srv *httptest.Server) {
	t.Helper()
	oldAI, oldModels := AI, Models
	AI = assistant.New(srv.URL, "llama2", time.Minute, time.Second)
	Models = &ModelCache{}
	t.Cleanup(func() { AI, Models = oldAI, oldModels })
}

func TestGetModelsFillsCache(t *testing.T) {
	srv := fakeOllama([]string{"llama2", "mistral"})
	defer srv.Close()
	setupAssistant(t, srv)

	rec, parsed := doRequest(t, testRouter(), http.MethodGet, "/api/assistant/models", "")
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, parsed)
	}
	models := parsed["models"].([]interface{})
	if len(models) != 2 || models[0] != "llama2" {
		t.Errorf("models = %v", models)
	}

	// Subsequent calls are served from the cache.
	srv.Close()
	rec, parsed = doRequest(t, testRouter(), http.MethodGet, "/api/assistant/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cached: status = %d", rec.Code)
	}
	if models := parsed["models"].([]interface{}); len(models) != 2 {
		t.Errorf("cached models = %v", models)
	}
}

func TestConnectAssistant(t *testing.T) {
	srv := fakeOllama([]string{"codellama"})
	defer srv.Close()
	setupAssistant(t, srv)

	rec, parsed := doRequest(t, testRouter(), http.MethodPost, "/api/assistant/connect",
		`{"url": "`+srv.URL+`"}`)
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, parsed)
	}
	if models := parsed["models"].([]interface{}); len(models) != 1 || models[0] != "codellama" {
		t.Errorf("models = %v", models)
	}
	if got := Models.Get(); len(got) != 1 {
		t.Errorf("cache not updated: %v", got)
	}
}

func TestConnectAssistantUnreachable(t *testing.T) {
	srv := fakeOllama(nil)
	setupAssistant(t, srv)
	srv.Close()

	rec, parsed := doRequest(t, testRouter(), http.MethodPost, "/api/assistant/connect",
		`{"url": "http://localhost:1"}`)
	if rec.Code != http.StatusBadRequest || parsed["success"] != false {
		t.Errorf("status=%d body=%v", rec.Code, parsed)
	}
}

func TestGetPersonas(t *testing.T) {
	old := Personas
	Personas = []config.Persona{config.DefaultPersona, {Name: "Ops", Role: "SRE"}}
	t.Cleanup(func() { Personas = old })

	rec, parsed := doRequest(t, testRouter(), http.MethodGet, "/api/personas", "")
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, parsed)
	}
	personas := parsed["personas"].([]interface{})
	if len(personas) != 2 {
		t.Fatalf("personas = %v", personas)
	}
	first := personas[0].(map[string]interface{})
	if first["name"] != "Assistant" {
		t.Errorf("first persona = %v", first)
	}
}

func TestGetServerLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	lines := "line one\nline two\nline three\n"
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	old := config.Cfg.LogPath
	config.Cfg.LogPath = path
	t.Cleanup(func() { config.Cfg.LogPath = old })

	rec, parsed := doRequest(t, testRouter(), http.MethodGet, "/api/logs?lines=2", "")
	if rec.Code != http.StatusOK || parsed["success"] != true {
		t.Fatalf("status=%d body=%v", rec.Code, parsed)
	}
	logs := parsed["logs"].(string)
	if strings.Contains(logs, "line one") {
		t.Errorf("tail included trimmed line: %q", logs)
	}
	if !strings.Contains(logs, "line two") || !strings.Contains(logs, "line three") {
		t.Errorf("tail missing expected lines: %q", logs)
	}
}
