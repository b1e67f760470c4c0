// Package settings is the persistence collaborator for user preferences and
// saved SSH host profiles. Passwords are fernet-encrypted before they hit
// the database and decrypted on load so the browser can populate forms.
package settings

import (
	"errors"
	"fmt"
	"log"
	"strconv"

	"gorm.io/gorm"

	"github.com/gluk-w/aiterm/internal/crypto"
	"github.com/gluk-w/aiterm/internal/database"
	"github.com/gluk-w/aiterm/internal/sshexec"
)

// SSH holds the last working SSH credentials.
type SSH struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file"`
}

// Assistant holds the browser-facing assistant preferences.
type Assistant struct {
	URL         string `json:"url"`
	Model       string `json:"model"`
	AIName      string `json:"ai_name"`
	AIRole      string `json:"ai_role"`
	AutoExecute bool   `json:"auto_execute"`
}

type Settings struct {
	SSH       SSH       `json:"ssh"`
	Assistant Assistant `json:"assistant"`
}

// Load reads all settings, decrypting the stored SSH password. Missing keys
// come back as zero values.
func Load() (Settings, error) {
	var s Settings
	s.SSH.Host = get("ssh_host")
	s.SSH.Port = atoiOr(get("ssh_port"), 22)
	s.SSH.Username = get("ssh_username")
	s.SSH.KeyFile = get("ssh_key_file")
	s.Assistant.URL = get("ollama_url")
	s.Assistant.Model = get("ollama_model")
	s.Assistant.AIName = get("ai_name")
	s.Assistant.AIRole = get("ai_role")
	s.Assistant.AutoExecute = get("auto_execute") == "true"

	pw, err := crypto.Decrypt(get("ssh_password"))
	if err != nil {
		return s, fmt.Errorf("decrypt ssh password: %w", err)
	}
	s.SSH.Password = pw
	return s, nil
}

// Save persists all settings, encrypting the SSH password.
func Save(s Settings) error {
	enc, err := crypto.Encrypt(s.SSH.Password)
	if err != nil {
		return fmt.Errorf("encrypt ssh password: %w", err)
	}
	pairs := map[string]string{
		"ssh_host":     s.SSH.Host,
		"ssh_port":     strconv.Itoa(s.SSH.Port),
		"ssh_username": s.SSH.Username,
		"ssh_password": enc,
		"ssh_key_file": s.SSH.KeyFile,
		"ollama_url":   s.Assistant.URL,
		"ollama_model": s.Assistant.Model,
		"ai_name":      s.Assistant.AIName,
		"ai_role":      s.Assistant.AIRole,
		"auto_execute": strconv.FormatBool(s.Assistant.AutoExecute),
	}
	for key, value := range pairs {
		if err := database.SetSetting(key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}

// SaveCredentials records a now-working SSH target as the current
// credentials. Called by the session core after every successful connect.
func SaveCredentials(t sshexec.Target) error {
	enc, err := crypto.Encrypt(t.Password)
	if err != nil {
		return fmt.Errorf("encrypt ssh password: %w", err)
	}
	pairs := map[string]string{
		"ssh_host":     t.Host,
		"ssh_port":     strconv.Itoa(t.Port),
		"ssh_username": t.Username,
		"ssh_password": enc,
		"ssh_key_file": t.KeyFile,
	}
	for key, value := range pairs {
		if err := database.SetSetting(key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}

// SaveHost registers or replaces a named host profile.
func SaveHost(name string, t sshexec.Target) error {
	enc, err := crypto.Encrypt(t.Password)
	if err != nil {
		return fmt.Errorf("encrypt host password: %w", err)
	}
	return database.UpsertHost(&database.SavedHost{
		Name:     name,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.Username,
		Password: enc,
		KeyFile:  t.KeyFile,
	})
}

// ListHosts returns all saved host profiles with decrypted passwords.
func ListHosts() ([]database.SavedHost, error) {
	hosts, err := database.ListHosts()
	if err != nil {
		return nil, err
	}
	for i := range hosts {
		pw, err := crypto.Decrypt(hosts[i].Password)
		if err != nil {
			return nil, fmt.Errorf("decrypt password for host %s: %w", hosts[i].Name, err)
		}
		hosts[i].Password = pw
	}
	return hosts, nil
}

// DeleteHost removes a saved host profile. Deleting a missing host is not
// an error.
func DeleteHost(name string) error {
	return database.DeleteHost(name)
}

// Store adapts the package to the session core's credential interface.
type Store struct{}

func (Store) SaveCredentials(t sshexec.Target) error { return SaveCredentials(t) }

func (Store) SaveHost(name string, t sshexec.Target) error { return SaveHost(name, t) }

// get returns the stored value for key. A missing key is a normal zero value;
// any other storage error is logged and also treated as unset.
func get(key string) string {
	v, err := database.GetSetting(key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[settings] read %s: %v", key, err)
		}
		return ""
	}
	return v
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
