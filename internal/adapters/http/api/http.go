// Package api serves the admin HTTP endpoints of the daemon.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/remindr/internal/app"
	"github.com/okian/remindr/pkg/logger"
)

// Dependencies are the read-only views the handlers need.
type Dependencies interface {
	Stats() service.Stats
	NotifiedIDs() []string
}

// Server wires the admin routes.
type Server struct {
	deps   Dependencies
	logger logger.Logger
}

// NewServer creates a Server over deps.
func NewServer(deps Dependencies) *Server {
	return &Server{
		deps:   deps,
		logger: logger.Get().Named("api"),
	}
}

// Router returns a gorilla/mux router with all admin routes registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
}

// Register attaches the admin routes to r.
func (s *Server) Register(r *mux.Router) {
	r.Use(s.recoverMiddleware)
	r.Use(metricsMiddleware)

	r.HandleFunc("/healthz", s.HandleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler()).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/status", s.HandleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/notified", s.HandleNotified).Methods(http.MethodGet)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
