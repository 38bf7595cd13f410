package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/dandy/internal/auth"
	"github.com/dukerupert/dandy/internal/model"
	"github.com/dukerupert/dandy/internal/store"
	"github.com/dukerupert/dandy/internal/token"
)

const msgKeyExists = "API key already exists, please provide a different value."

type keyStore interface {
	Create(ctx context.Context, userID int64, name, key string) (*model.APIKey, error)
	ListByUser(ctx context.Context, userID int64) ([]model.APIKey, error)
	GetOwned(ctx context.Context, id, userID int64) (*model.APIKey, error)
	GetByKey(ctx context.Context, key string) (*model.APIKey, error)
	Rename(ctx context.Context, id, userID int64, name string) (*model.APIKey, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
}

// KeyHandler serves API-key CRUD for the resolved identity. Keys owned by
// anyone else are reported as missing.
type KeyHandler struct {
	store  keyStore
	logger *slog.Logger
}

func NewKeyHandler(s keyStore, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{store: s, logger: logger}
}

func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListByUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list api keys", "error", err)
		writeStoreError(w, err, "failed to list api keys")
		return
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *KeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required.")
		return
	}
	if req.Key == "" {
		k, err := token.APIKey()
		if err != nil {
			h.logger.Error("generate api key", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to generate api key")
			return
		}
		req.Key = k
	}

	key, err := h.store.Create(r.Context(), auth.UserID(r.Context()), req.Name, req.Key)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, msgKeyExists)
		return
	}
	if err != nil {
		h.logger.Error("create api key", "error", err)
		writeStoreError(w, err, "failed to create api key")
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

func (h *KeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	key, err := h.store.GetOwned(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get api key", "id", id, "error", err)
		writeStoreError(w, err, "failed to get api key")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required.")
		return
	}

	key, err := h.store.Rename(r.Context(), id, auth.UserID(r.Context()), req.Name)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, msgKeyExists)
		return
	}
	if err != nil {
		h.logger.Error("update api key", "id", id, "error", err)
		writeStoreError(w, err, "failed to update api key")
		return
	}
	if key == nil {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("delete api key", "id", id, "error", err)
		writeStoreError(w, err, "failed to delete api key")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "API key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate reports whether a key exists. It needs no identity.
func (h *KeyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "error": "API key is required"})
		return
	}

	key, err := h.store.GetByKey(r.Context(), req.Key)
	if err != nil {
		h.logger.Error("validate api key", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"valid": false, "error": "Database error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": key != nil})
}
