package server

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser clients connect cross-origin during takeovers on shipboard
	// networks; the JWT is the access control.
	CheckOrigin: func(*http.Request) bool { return true },
}

// registerWS mounts the push channel outside the huma API. The token rides
// the query string because browsers cannot set headers on WebSocket dials.
func registerWS(router chi.Router, cfg Config) {
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if t, ok := bearerToken(r.Header.Get("Authorization")); ok {
				token = t
			}
		}
		principal, err := authenticateJWT(token, cfg.Auth.JWTSecret)
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil))
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.Log.Warn().Err(err).Msg("ws: upgrade failed")
			return
		}
		cfg.Hub.Serve(r.Context(), conn, principal.Role)
	})
}

// registerUploads mounts multipart attachment upload under the API base
// path (the auth middleware already guards it) plus static serving of
// locally stored blobs.
func registerUploads(router chi.Router, cfg Config, basePath string) {
	router.Post(basePath+"/tasks/{task_id}/attachments", func(w http.ResponseWriter, r *http.Request) {
		actor, authErr := actorFromContext(r.Context())
		if authErr != nil {
			respondStatusError(w, authErr)
			return
		}
		if cfg.Blobs == nil {
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "uploads not configured", nil))
			return
		}
		taskID := chi.URLParam(r, "task_id")

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "multipart form required", nil))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "file field required", nil))
			return
		}
		defer file.Close()

		ext := filepath.Ext(header.Filename)
		name := uuid.NewString() + strings.ToLower(ext)
		url, err := cfg.Blobs.Put(r.Context(), name, file, header.Size, header.Header.Get("Content-Type"))
		if err != nil {
			cfg.Log.Error().Err(err).Msg("upload: store failed")
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "store failed", nil))
			return
		}

		a, engineErr := cfg.Engine.AddAttachment(r.Context(), taskID, url, header.Filename, actor)
		if engineErr != nil {
			respondStatusError(w, handleError(engineErr))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(a)
	})

	if cfg.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir)))
		router.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
			fs.ServeHTTP(w, r)
		})
	}
}
