package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"duocall/backend/internal/chathub"
	"duocall/backend/internal/metrics"

	"github.com/gorilla/websocket"
)

// Handler holds what the HTTP routes need from the rest of the app.
type Handler struct {
	Hub         *chathub.ManagerService
	Metrics     *metrics.Recorder
	AdminSecret string
	Log         *slog.Logger

	upgrader websocket.Upgrader
}

// NewHandler wires the routes to hub. allowedOrigins also gates websocket
// upgrades; "*" accepts any origin.
func NewHandler(hub *chathub.ManagerService, rec *metrics.Recorder, adminSecret string, allowedOrigins []string) *Handler {
	return &Handler{
		Hub:         hub,
		Metrics:     rec,
		AdminSecret: adminSecret,
		Log:         slog.Default().With("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || slices.Contains(allowed, origin)
	}
}
