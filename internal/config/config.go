package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":1010"`
	DataPath     string `envconfig:"DATA_PATH" default:"./data"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:""`
	LogPath      string `envconfig:"LOG_PATH" default:""`

	// Assistant backend defaults; the browser may override both per request.
	OllamaHost  string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama2"`

	// Conversation history: retained messages and the trailing window sent
	// to the model as context.
	HistoryMax    int `envconfig:"HISTORY_MAX" default:"100"`
	HistoryWindow int `envconfig:"HISTORY_WINDOW" default:"10"`

	SSHTimeout      time.Duration `envconfig:"SSH_TIMEOUT" default:"10s"`
	CommandTimeout  time.Duration `envconfig:"COMMAND_TIMEOUT" default:"120s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"300s"`
	ProbeTimeout    time.Duration `envconfig:"PROBE_TIMEOUT" default:"5s"`

	// Optional persona presets file (YAML)
	PersonasPath string `envconfig:"PERSONAS_PATH" default:""`

	// Cron spec for the background model list refresh. Empty disables it.
	ModelRefreshSpec string `envconfig:"MODEL_REFRESH_SPEC" default:"@every 10m"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("AITERM", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if Cfg.DatabasePath == "" {
		Cfg.DatabasePath = filepath.Join(Cfg.DataPath, "aiterm.db")
	}
	if Cfg.LogPath == "" {
		Cfg.LogPath = filepath.Join(Cfg.DataPath, "aiterm.log")
	}
}
