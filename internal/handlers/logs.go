package handlers

import (
	"net/http"
	"strconv"

	"github.com/gluk-w/aiterm/internal/logging"
)

// GetServerLogs returns the tail of the server log file. ?lines=N caps the
// number of lines, default 200.
func GetServerLogs(w http.ResponseWriter, r *http.Request) {
	n := 200
	if v := r.URL.Query().Get("lines"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	tail, err := logging.ReadTail(n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "logs": tail})
}
