// Package api exposes stanza over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/ingestion"
	"github.com/poiesic/stanza/match"
	"github.com/poiesic/stanza/metrics"
	"github.com/poiesic/stanza/rhyme"
	"github.com/poiesic/stanza/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
	maxBodyBytes     = 1 << 20
)

// Ingester stores texts as fragments.
type Ingester interface {
	Ingest(ctx context.Context, texts []string, opts *ingestion.IngestOptions) ([]*core.Fragment, error)
	Wait()
}

// Matcher matches a query text against the stored fragments.
type Matcher interface {
	Match(ctx context.Context, text string) ([]*core.MatchResult, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the stanza HTTP API.
type Server struct {
	fragments     storage.FragmentRepository
	ingester      Ingester
	matcher       Matcher
	gatherer      prometheus.Gatherer
	logger        *slog.Logger
	errorHandlers []errorHandler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer sets the registry served on /metrics.
// Default is prometheus.DefaultGatherer.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		if gatherer != nil {
			s.gatherer = gatherer
		}
	}
}

// NewServer creates an HTTP API server.
func NewServer(fragments storage.FragmentRepository, ingester Ingester, matcher Matcher, opts ...Option) *Server {
	s := &Server{
		fragments: fragments,
		ingester:  ingester,
		matcher:   matcher,
		gatherer:  prometheus.DefaultGatherer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "api")
	s.errorHandlers = []errorHandler{
		sentinelHandler(storage.ErrNotFound, http.StatusNotFound),
		sentinelHandler(storage.ErrDuplicateKey, http.StatusConflict),
		sentinelHandler(storage.ErrInvalidQuery, http.StatusBadRequest),
		sentinelHandler(core.ErrInvalidFragment, http.StatusBadRequest),
		sentinelHandler(core.ErrEmptyText, http.StatusBadRequest),
		sentinelHandler(match.ErrAnalysisFailed, http.StatusBadGateway),
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/fragments", s.ingest)
		r.Get("/fragments", s.listFragments)
		r.Get("/fragments/{id}", s.getFragment)
		r.Delete("/fragments/{id}", s.deleteFragment)
		r.Post("/matches", s.match)
		r.Post("/patterns", s.patterns)
	})

	return r
}

// health handles GET /healthz.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	count, err := s.fragments.CountFragments(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "err", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "fragments": count})
}

// ingest handles POST /v1/fragments. It responds once analysis has finished.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !s.decode(w, r, &req) {
		return
	}

	texts := req.Texts
	if req.Text != "" {
		texts = append([]string{req.Text}, texts...)
	}
	if len(texts) == 0 {
		writeError(w, http.StatusBadRequest, "text or texts is required")
		return
	}

	added, err := s.ingester.Ingest(r.Context(), texts, &ingestion.IngestOptions{Metadata: req.Metadata})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	s.ingester.Wait()

	ids := make([]core.ID, len(added))
	for i, f := range added {
		ids[i] = f.Id
	}
	stored, err := s.fragments.GetFragments(r.Context(), ids...)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fragmentListResponse{
		Fragments: fragmentsToResponse(stored),
		Total:     len(stored),
	})
}

// listFragments handles GET /v1/fragments?limit=N.
func (s *Server) listFragments(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}

	fragments, err := s.fragments.GetRecentFragments(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	total, err := s.fragments.CountFragments(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fragmentListResponse{
		Fragments: fragmentsToResponse(fragments),
		Total:     total,
	})
}

// getFragment handles GET /v1/fragments/{id}.
func (s *Server) getFragment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	fragment, err := s.fragments.GetFragment(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fragmentToResponse(fragment))
}

// deleteFragment handles DELETE /v1/fragments/{id}.
func (s *Server) deleteFragment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.fragments.DeleteFragments(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// match handles POST /v1/matches.
func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	results, err := s.matcher.Match(r.Context(), req.Text)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := matchListResponse{Results: make([]matchResponse, len(results))}
	for i, result := range results {
		resp.Results[i] = matchToResponse(result)
	}
	writeJSON(w, http.StatusOK, resp)
}

// patterns handles POST /v1/patterns. It needs no storage or analysis service.
func (s *Server) patterns(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, patternsResponse{Patterns: rhyme.Extract(req.Text)})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (core.ID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid fragment id: "+strconv.Quote(raw))
		return 0, false
	}
	return core.ID(id), true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("request failed", "err", err)
			return
		}
	}
	s.logger.Error("internal error", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered", "panic", rvr, "path", r.URL.Path)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one log line per request and propagates X-Request-ID.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"latency", time.Since(start),
				"response_bytes", ww.BytesWritten(),
			)
		})
	}
}
