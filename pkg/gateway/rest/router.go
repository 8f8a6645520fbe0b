package rest

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Route variables.
const (
	varNamespace = "namespace"
	varID        = "id"
)

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()

	// System endpoints (no rate limiting)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	if s.config.Metrics != nil {
		r.Handle("/metrics", s.config.Metrics.Handler()).Methods(http.MethodGet)
	}

	// API endpoints with middleware
	r.HandleFunc("/namespaces", s.withMiddleware(s.handleNamespaces)).Methods(http.MethodGet)
	r.HandleFunc("/namespaces/{namespace}/attributes", s.withMiddleware(s.handleAttributes)).Methods(http.MethodGet)
	r.HandleFunc("/namespaces/{namespace}/events", s.withMiddleware(s.handleEvents)).Methods(http.MethodGet)
	r.HandleFunc("/attribute/{namespace}/{id}", s.withMiddleware(s.handleGetAttribute)).Methods(http.MethodGet)
	r.HandleFunc("/attribute/{namespace}/{id}", s.withMiddleware(s.handleSetAttribute)).Methods(http.MethodPut)
	r.HandleFunc("/notifications/{namespace}", s.withMiddleware(s.handleNotifications)).Methods(http.MethodGet)

	r.NotFoundHandler = s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "NOT_FOUND", "No route for "+r.URL.Path, false, nil)
	})
	r.MethodNotAllowedHandler = s.requestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed,
			"Method "+r.Method+" not allowed", false, nil)
	})

	return r
}
