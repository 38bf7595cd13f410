package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/dandy/internal/store"
)

const msgNotConfigured = "Database not configured. Please check your environment variables."

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError answers 500 and names a missing datastore explicitly.
func writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrNotConfigured) {
		msg = msgNotConfigured
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
