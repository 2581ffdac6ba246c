// Package server exposes a finished conflation run over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/meshblock/conflator/internal/metrics"
	"github.com/meshblock/conflator/pkg/cardinality"
	"github.com/meshblock/conflator/pkg/containment"
	"github.com/meshblock/conflator/pkg/pipeline"
	"github.com/meshblock/conflator/pkg/report"
	"github.com/meshblock/conflator/pkg/scene2d"
)

// Server serves the results of one conflation run for review.
type Server struct {
	addr    string
	logger  zerolog.Logger
	metrics *metrics.Recorder

	mu      sync.RWMutex
	outcome *pipeline.Outcome
}

// New creates a server for a finished run. rec may be nil, in which case
// /metrics is not mounted.
func New(addr string, o *pipeline.Outcome, rec *metrics.Recorder, logger zerolog.Logger) *Server {
	return &Server{
		addr:    addr,
		logger:  logger.With().Str("component", "server").Logger(),
		metrics: rec,
		outcome: o,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/blocks", s.handleBlocks)
		r.Get("/blocks/{id}", s.handleBlock)
		r.Get("/groups", s.handleGroups)
		r.Get("/scene", s.handleScene)
		r.Get("/validation", s.handleValidation)
		r.Post("/reclassify", s.handleReclassify)
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Outcome returns the run currently served.
func (s *Server) Outcome() *pipeline.Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Outcome().Report.Summary)
}

// handleBlocks lists block records, optionally filtered by status and
// cardinality.
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	status := containment.Status(r.URL.Query().Get("status"))
	tag := cardinality.Tag(r.URL.Query().Get("cardinality"))

	blocks := make([]report.Record, 0)
	for _, b := range s.Outcome().Report.Blocks {
		if status != "" && b.Status != status {
			continue
		}
		if tag != "" && b.Cardinality != tag {
			continue
		}
		blocks = append(blocks, b)
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := s.Outcome().Report.Block(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("block %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	tag := cardinality.Tag(r.URL.Query().Get("cardinality"))
	groups := make([]cardinality.Group, 0)
	for _, g := range s.Outcome().Report.Groups {
		if tag == "" || g.Tag == tag {
			groups = append(groups, g)
		}
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleScene(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, scene2d.Assemble2D(s.Outcome()))
}

func (s *Server) handleValidation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Outcome().Validation)
}

// handleReclassify swaps in a classification at a new threshold. Overlay
// results are reused.
func (s *Server) handleReclassify(w http.ResponseWriter, r *http.Request) {
	v, err := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "threshold must be a number")
		return
	}
	t, err := containment.NewThreshold(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	s.outcome = s.outcome.Reclassify(t)
	summary := s.outcome.Report.Summary
	s.mu.Unlock()

	s.logger.Info().Float64("threshold", v).Msg("reclassified")
	writeJSON(w, http.StatusOK, summary)
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><title>Meshblock conflation</title></head>
<body style="margin:0;background:#111;color:#fff;font-family:system-ui;padding:2rem">
<h1>Meshblock conflation</h1>
<p>Threshold {{printf "%.2f" .Threshold}} &middot; {{.NGDBlocks}} NGD blocks &middot; {{.EGPBlocks}} EGP blocks</p>
<table>
{{range $status, $n := .ByStatus}}<tr><td>{{$status}}</td><td>{{$n}}</td></tr>
{{end}}</table>
<p>API: <code>/api/summary</code> <code>/api/blocks</code> <code>/api/groups</code> <code>/api/scene</code> <code>/api/validation</code></p>
</body></html>`))

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	indexPage.Execute(w, s.Outcome().Report.Summary)
}
