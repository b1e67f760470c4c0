package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"github.com/gluk-w/aiterm/internal/assistant"
	"github.com/gluk-w/aiterm/internal/config"
	"github.com/gluk-w/aiterm/internal/database"
	"github.com/gluk-w/aiterm/internal/gateway"
	"github.com/gluk-w/aiterm/internal/handlers"
	"github.com/gluk-w/aiterm/internal/logging"
	"github.com/gluk-w/aiterm/internal/session"
	"github.com/gluk-w/aiterm/internal/settings"
	"github.com/gluk-w/aiterm/internal/sshexec"
	"github.com/gluk-w/aiterm/internal/telemetry"
)

func main() {
	config.Load()

	logging.Init()
	defer logging.Close()

	cleanup, err := telemetry.Init(context.Background())
	if err != nil {
		log.Printf("WARNING: telemetry init failed: %v", err)
	} else {
		defer cleanup()
	}

	if err := database.Init(); err != nil {
		log.Fatalf("Database init: %v", err)
	}
	defer database.Close()

	// Assistant backend client. Stored settings override the env default so a
	// URL saved through the UI survives restarts.
	host := config.Cfg.OllamaHost
	model := config.Cfg.OllamaModel
	if saved, err := settings.Load(); err == nil {
		if saved.Assistant.URL != "" {
			host = saved.Assistant.URL
		}
		if saved.Assistant.Model != "" {
			model = saved.Assistant.Model
		}
	}
	ai := assistant.New(host, model, config.Cfg.GenerateTimeout, config.Cfg.ProbeTimeout)
	handlers.AI = ai
	log.Printf("Assistant backend: %s (default model %s)", host, model)

	personas, err := config.LoadPersonas(config.Cfg.PersonasPath)
	if err != nil {
		log.Printf("WARNING: persona presets: %v", err)
		personas = []config.Persona{config.DefaultPersona}
	}
	handlers.Personas = personas

	manager := session.NewManager(
		session.Config{
			HistoryMax:     config.Cfg.HistoryMax,
			Window:         config.Cfg.HistoryWindow,
			DefaultPersona: personas[0],
		},
		ai,
		settings.Store{},
		func() session.Executor {
			return sshexec.New(config.Cfg.SSHTimeout, config.Cfg.CommandTimeout)
		},
	)

	// Prime the model cache and keep it fresh in the background.
	handlers.RefreshModels()
	scheduler := cron.New()
	if spec := config.Cfg.ModelRefreshSpec; spec != "" {
		if _, err := scheduler.AddFunc(spec, handlers.RefreshModels); err != nil {
			log.Printf("WARNING: model refresh schedule %q: %v", spec, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	ws := gateway.New(manager)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/health", handlers.HealthCheck)
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", handlers.GetSettings)
		r.Post("/settings", handlers.UpdateSettings)

		r.Get("/hosts", handlers.GetHosts)
		r.Post("/hosts", handlers.SaveHost)
		r.Delete("/hosts/{name}", handlers.DeleteHost)

		r.Get("/assistant/models", handlers.GetModels)
		r.Post("/assistant/connect", handlers.ConnectAssistant)
		r.Get("/personas", handlers.GetPersonas)

		r.Get("/logs", handlers.GetServerLogs)
	})

	srv := &http.Server{
		Addr:    config.Cfg.ListenAddr,
		Handler: r,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server starting on %s", config.Cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
	log.Printf("Server stopped (%d sessions closed)", manager.Count())
}
