// Package server exposes a skill catalog over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/jingkaihe/skillcat/pkg/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Catalog is the part of *skills.Catalog the server needs.
type Catalog interface {
	List(category string) []skills.Summary
	Search(keyword string) []skills.Summary
	Get(id string) (*skills.Record, error)
	Fetch(ctx context.Context, id, relPath string) ([]byte, error)
	Rebuild(ctx context.Context) (*skills.Report, error)
	Status() skills.Status
	Report() *skills.Report
	Len() int
}

// Config holds the listen address.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DefaultConfig listens on localhost:8080.
func DefaultConfig() *Config {
	return &Config{Host: "localhost", Port: 8080}
}

func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server serves the catalog API.
type Server struct {
	router  *mux.Router
	handler http.Handler
	catalog Catalog
	config  *Config
	server  *http.Server
}

// New creates a server for catalog.
func New(catalog Catalog, config *Config) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	s := &Server{
		// Attachment paths are passed to the fetcher verbatim, so the
		// router must not clean away "..".
		router:  mux.NewRouter().SkipClean(true),
		catalog: catalog,
		config:  config,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	route := func(tpl, method string, h http.HandlerFunc) {
		api.HandleFunc(tpl, h).Methods(method)
		// mux reports 404 for a method mismatch once a later route fails
		// to match, so every path gets its own 405 fallback.
		api.HandleFunc(tpl, s.methodNotAllowed(method))
	}
	route("/status", http.MethodGet, s.handleStatus)
	route("/rebuild", http.MethodPost, s.handleRebuild)
	route("/skills", http.MethodGet, s.handleListSkills)
	route("/skills/search", http.MethodGet, s.handleSearchSkills)
	route("/skills/{id}", http.MethodGet, s.handleGetSkill)
	route("/skills/{id}/attachments/{path:.*}", http.MethodGet, s.handleFetchAttachment)

	s.router.Use(s.loggingMiddleware)
	// Preflight requests match no route, so CORS wraps the router itself.
	s.handler = otelhttp.NewHandler(s.corsMiddleware(s.router), "skillcat.http")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// routeTemplate is the matched route pattern, used as the span name so
// attachment paths do not each become a distinct span name.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		trace.SpanFromContext(r.Context()).SetName(r.Method + " " + routeTemplate(r))

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration":    time.Since(start),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Status     skills.Status    `json:"status"`
	Skills     int              `json:"skills"`
	BuildID    string           `json:"build_id,omitempty"`
	Root       string           `json:"root,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Failures   []skills.Failure `json:"failures"`
	Process    *ProcessInfo     `json:"process,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:   s.catalog.Status(),
		Skills:   s.catalog.Len(),
		Failures: []skills.Failure{},
		Process:  currentProcess(r.Context()),
	}
	if report := s.catalog.Report(); report != nil {
		resp.BuildID = report.BuildID
		resp.Root = report.Root
		finished := report.FinishedAt
		resp.FinishedAt = &finished
		if report.Failures != nil {
			resp.Failures = report.Failures
		}
	}
	s.writeJSONResponse(w, resp)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	report, err := s.catalog.Rebuild(r.Context())
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "failed to rebuild catalog", err)
		return
	}
	s.writeJSONResponse(w, report)
}

func (s *Server) methodNotAllowed(allowed string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allowed)
		s.writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed",
			errors.Errorf("%s %s only accepts %s", r.Method, r.URL.Path, allowed))
	}
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, s.catalog.List(r.URL.Query().Get("category")))
}

func (s *Server) handleSearchSkills(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, s.catalog.Search(r.URL.Query().Get("q")))
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	record, err := s.catalog.Get(id)
	if err != nil {
		s.writeErrorResponse(w, r, statusFor(err), "failed to get skill", err)
		return
	}
	s.writeJSONResponse(w, record)
}

func (s *Server) handleFetchAttachment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	content, err := s.catalog.Fetch(r.Context(), vars["id"], vars["path"])
	if err != nil {
		s.writeErrorResponse(w, r, statusFor(err), "failed to fetch attachment", err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(vars["path"]))
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Write(content)
}

// statusFor maps catalog errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case skills.IsPathTraversal(err):
		return http.StatusBadRequest
	case skills.IsNotFound(err), skills.IsAttachmentNotFound(err):
		return http.StatusNotFound
	case skills.IsAttachmentTooLarge(err):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(context.TODO()).WithError(err).Error("failed to encode JSON response")
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Status  int    `json:"status"`
	Success bool   `json:"success"`
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	log := logger.G(r.Context()).WithError(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error(message)
	} else {
		log.Debug(message)
	}
	telemetry.RecordError(r.Context(), err, attribute.String("error.kind", skills.Kind(err)))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Error:  fmt.Sprintf("%s: %v", message, err),
		Kind:   skills.Kind(err),
		Status: statusCode,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.config.Addr())
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) Close() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}
