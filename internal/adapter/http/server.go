package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/luis-ma-m/eco-spain-mapper/internal/domain"
	"github.com/luis-ma-m/eco-spain-mapper/internal/observability"
	"github.com/luis-ma-m/eco-spain-mapper/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Renderer runs one aggregation pass over a CSV input.
type Renderer interface {
	Render(ctx context.Context, r io.Reader, sel pipeline.Selection) (*pipeline.Result, error)
	CheckReadiness(ctx context.Context) error
}

// SourceFetcher opens a remote CSV for the auto-load path.
type SourceFetcher interface {
	FetchCSV(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// Server exposes the render endpoint plus health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	renderer   Renderer
	fetcher    SourceFetcher
	maxBytes   int64
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates the HTTP server. Routes: POST /v1/render, GET /healthz,
// GET /readyz, GET /metrics.
func NewServer(addr string, renderer Renderer, fetcher SourceFetcher, maxBytes int64, logger *slog.Logger, metrics *observability.Metrics) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		renderer: renderer,
		fetcher:  fetcher,
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  metrics,
	}

	mux.HandleFunc("POST /v1/render", s.handleRender)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(renderer))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleRender accepts a CSV body (or a ?source=URL to fetch one) plus filter
// query parameters, and responds with the render payload. The request context
// is threaded through fetch and parse, so a client abandoning the request
// cancels the in-flight pass: last request wins by cancellation.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	sel, err := parseSelection(r)
	if err != nil {
		s.fail(w, reqID, http.StatusBadRequest, err)
		return
	}

	input, err := s.openInput(r)
	if err != nil {
		s.failPipeline(w, reqID, err)
		return
	}
	defer input.Close()

	result, err := s.renderer.Render(r.Context(), input, sel)
	if err != nil {
		// Empty results still report their parse accounting.
		if errors.Is(err, domain.ErrEmptyResult) && result != nil {
			s.metrics.RendersServed.WithLabelValues("empty").Inc()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":        err.Error(),
				"request_id":   reqID,
				"stats":        result.Stats,
				"generated_at": result.GeneratedAt,
			})
			return
		}
		s.failPipeline(w, reqID, err)
		return
	}

	s.metrics.RendersServed.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, result)
}

// openInput returns the CSV stream: the fetched remote source when ?source=
// is present, otherwise the request body. A declared oversize body fails
// fast here; undeclared ones hit the parser's own byte ceiling.
func (s *Server) openInput(r *http.Request) (io.ReadCloser, error) {
	if src := r.URL.Query().Get("source"); src != "" {
		return s.fetcher.FetchCSV(r.Context(), src)
	}
	if r.ContentLength > s.maxBytes {
		return nil, &domain.LimitError{Limit: "bytes", Max: s.maxBytes, Got: r.ContentLength}
	}
	return r.Body, nil
}

func parseSelection(r *http.Request) (pipeline.Selection, error) {
	q := r.URL.Query()
	sel := pipeline.Selection{
		Region: q.Get("region"),
		Sector: q.Get("sector"),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return pipeline.Selection{}, errors.New("invalid year parameter")
		}
		sel.Year = year
	}
	if m := q.Get("metrics"); m != "" {
		for _, name := range strings.Split(m, ",") {
			if name = strings.TrimSpace(name); name != "" {
				sel.Metrics = append(sel.Metrics, name)
			}
		}
	}
	return sel, nil
}

// failPipeline maps pipeline errors onto HTTP statuses per the error
// taxonomy: limit breaches reject the input, fetch failures are retryable,
// anything else is a bad request.
func (s *Server) failPipeline(w http.ResponseWriter, reqID string, err error) {
	var limitErr *domain.LimitError
	var fetchErr *domain.FetchError
	switch {
	case errors.As(err, &limitErr):
		s.metrics.RendersServed.WithLabelValues("rejected").Inc()
		s.fail(w, reqID, http.StatusRequestEntityTooLarge, err)
	case errors.As(err, &fetchErr):
		s.metrics.RendersServed.WithLabelValues("error").Inc()
		s.fail(w, reqID, http.StatusBadGateway, err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		s.metrics.RendersServed.WithLabelValues("error").Inc()
	default:
		s.metrics.RendersServed.WithLabelValues("error").Inc()
		s.fail(w, reqID, http.StatusBadRequest, err)
	}
}

func (s *Server) fail(w http.ResponseWriter, reqID string, status int, err error) {
	s.logger.Warn("render request failed", "request_id", reqID, "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error(), "request_id": reqID})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
