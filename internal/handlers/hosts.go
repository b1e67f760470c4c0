package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gluk-w/aiterm/internal/settings"
	"github.com/gluk-w/aiterm/internal/sshexec"
)

type hostRequest struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	KeyFile  string `json:"key_file"`
}

// GetHosts lists saved SSH host profiles, passwords decrypted.
func GetHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := settings.ListHosts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "hosts": hosts})
}

// SaveHost creates or replaces a profile, keyed by name.
func SaveHost(w http.ResponseWriter, r *http.Request) {
	var req hostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Host == "" {
		writeError(w, http.StatusBadRequest, "Name and host are required")
		return
	}
	if req.Port <= 0 {
		req.Port = 22
	}

	err := settings.SaveHost(req.Name, sshexec.Target{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		KeyFile:  req.KeyFile,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Host saved"})
}

// DeleteHost removes a saved profile by name.
func DeleteHost(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Host name required")
		return
	}
	if err := settings.DeleteHost(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Host deleted"})
}
