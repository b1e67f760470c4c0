package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gluk-w/aiterm/internal/settings"
)

// GetSettings returns all user settings with decrypted credentials so the
// browser can populate its forms. Nothing on disk is modified.
func GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := settings.Load()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "settings": s})
}

// UpdateSettings replaces the stored settings; the SSH password is
// encrypted before it reaches the database.
func UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var s settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := settings.Save(s); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Settings saved"})
}
