// Package handlers implements the HTTP surface over the storage and auth
// engines. Handlers receive already-routed requests, translate them into
// engine calls and render the JSON envelopes.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"filehost/auth"
	"filehost/config"
	"filehost/models"
	"filehost/storage"
)

var (
	store      *storage.Storage
	authEngine *auth.Auth
	sessions   *auth.Sessions
	cfg        *config.Config
)

// Configure injects the engines every handler depends on. Must run before
// the router is wired.
func Configure(s *storage.Storage, a *auth.Auth, sess *auth.Sessions, c *config.Config) {
	store = s
	authEngine = a
	sessions = sess
	cfg = c
}

func writeJSON(w http.ResponseWriter, status int, body models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Health reports liveness.
// @Summary Health check
// @Tags meta
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health [get]
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.SuccessResponse("ok", nil))
}

// ConfigJS exposes the client-relevant settings as a script the upload page
// includes.
// @Summary Client configuration script
// @Tags meta
// @Produce plain
// @Success 200 {string} string
// @Router /config.js [get]
func ConfigJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	fmt.Fprintf(w, "var CONFIG = {upload: {max_size: %d}};\n", cfg.MaxUploadSize)
}
