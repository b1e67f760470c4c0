package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	old := Cfg
	t.Cleanup(func() { Cfg = old })

	Load()

	if Cfg.ListenAddr != ":1010" {
		t.Errorf("ListenAddr = %q", Cfg.ListenAddr)
	}
	if Cfg.HistoryMax != 100 || Cfg.HistoryWindow != 10 {
		t.Errorf("history bounds = %d/%d", Cfg.HistoryMax, Cfg.HistoryWindow)
	}
	if Cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("OllamaHost = %q", Cfg.OllamaHost)
	}
}

func TestLoadDerivesPathsFromDataPath(t *testing.T) {
	old := Cfg
	t.Cleanup(func() { Cfg = old })
	t.Setenv("AITERM_DATA_PATH", "/var/lib/aiterm")

	Load()

	if Cfg.DatabasePath != "/var/lib/aiterm/aiterm.db" {
		t.Errorf("DatabasePath = %q", Cfg.DatabasePath)
	}
	if Cfg.LogPath != "/var/lib/aiterm/aiterm.log" {
		t.Errorf("LogPath = %q", Cfg.LogPath)
	}
}

func TestLoadExplicitPathsWin(t *testing.T) {
	old := Cfg
	t.Cleanup(func() { Cfg = old })
	t.Setenv("AITERM_DATA_PATH", "/var/lib/aiterm")
	t.Setenv("AITERM_DATABASE_PATH", "/mnt/db/terminal.db")

	Load()

	if Cfg.DatabasePath != "/mnt/db/terminal.db" {
		t.Errorf("DatabasePath = %q", Cfg.DatabasePath)
	}
}
