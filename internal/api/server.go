// Package api serves the JSON HTTP interface.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/graphcalc/internal/logging"
	"github.com/rendis/graphcalc/internal/service"
	"github.com/rendis/graphcalc/internal/session"
)

// Deps holds the dependencies for the API server.
type Deps struct {
	Sessions *session.Manager
	Parser   *service.Parser
	Graphs   *service.Graphs
	Query    *service.Query
	Logger   *slog.Logger
}

// Server serves the graph, equation and session endpoints.
type Server struct {
	deps Deps
}

// NewServer creates a new Server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for every API route. Each route answers
// with and without a trailing slash.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Equation parser.
	route(mux, "POST", "/api/equations/parser/parse_equation", s.handleParseEquation)

	// Resolver sessions.
	route(mux, "GET", "/api/sessions", s.handleListSessions)
	route(mux, "POST", "/api/sessions", s.handleCreateSession)
	route(mux, "GET", "/api/sessions/{id}", s.handleGetSession)
	route(mux, "DELETE", "/api/sessions/{id}", s.handleCloseSession)
	route(mux, "POST", "/api/sessions/{id}/rules", s.handleAddRule)
	route(mux, "POST", "/api/sessions/{id}/execute", s.handleExecute)
	route(mux, "POST", "/api/sessions/{id}/resolve", s.handleResolve)
	route(mux, "GET", "/api/sessions/{id}/diagram", s.handleDiagram)

	// Graphs.
	route(mux, "GET", "/api/graphs", s.handleListGraphs)
	route(mux, "POST", "/api/graphs", s.handleCreateGraph)
	route(mux, "GET", "/api/graphs/{id}", s.handleGetGraph)
	route(mux, "PUT", "/api/graphs/{id}", s.handleUpdateGraph)
	route(mux, "DELETE", "/api/graphs/{id}", s.handleDeleteGraph)
	route(mux, "GET", "/api/graphs/{id}/equations", s.handleQueryEquations)

	// Equations.
	route(mux, "POST", "/api/equations", s.handleCreateEquation)
	route(mux, "GET", "/api/equations/{id}", s.handleGetEquation)
	route(mux, "PUT", "/api/equations/{id}", s.handleUpdateEquation)
	route(mux, "DELETE", "/api/equations/{id}", s.handleDeleteEquation)

	return s.withRequestContext(mux)
}

func route(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(method+" "+path+"/{$}", h)
}

// withRequestContext tags each request with an ID for log correlation and
// turns panics into 500 envelopes when nothing has been written yet.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := logging.WithRequestID(r.Context(), reqID)
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}

		defer func() {
			if rec := recover(); rec != nil {
				logging.LogWith(ctx, s.deps.Logger).Error("handler panic",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.Bool("headers_sent", sw.status != 0))
				if sw.status == 0 {
					writeFail(sw, http.StatusInternalServerError, fmt.Sprintf("Internal server error - %v", rec), "")
				}
			}
		}()

		next.ServeHTTP(sw, r.WithContext(ctx))
		logging.LogWith(ctx, s.deps.Logger).Debug("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

// statusWriter remembers the status code sent, zero until the header is out.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
