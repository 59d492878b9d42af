// Package server exposes the viewer front end as a JSON API: document upload,
// summary retrieval, progress observation and viewport-fit computation.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/planscope/planscope/internal/models"
	"github.com/planscope/planscope/internal/orchestrator"
	"github.com/planscope/planscope/internal/store"
)

// maxUploadBytes bounds one multipart upload. Architectural drawing sets run
// large, but not unbounded.
const maxUploadBytes = 128 << 20

// runTimeout bounds one background orchestration run end to end.
const runTimeout = 15 * time.Minute

// Server owns the HTTP surface and the background orchestration runs started
// by uploads.
type Server struct {
	acc    *store.DataAccessor
	log    *slog.Logger
	router chi.Router

	baseCtx context.Context
	wg      sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds the server. Background runs inherit from ctx, so cancelling it
// tears down every in-flight orchestration.
func New(ctx context.Context, acc *store.DataAccessor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		acc:      acc,
		log:      log,
		baseCtx:  ctx,
		inFlight: make(map[string]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleUpload)
		r.Get("/", s.handleList)
		r.Route("/{pdfId}", func(r chi.Router) {
			r.Get("/", s.handleSummary)
			r.Get("/view", s.handleView)
			r.Get("/file", s.handleFile)
			r.Get("/progress", s.handleProgress)
			r.Get("/events", s.handleEvents)
			r.Post("/fit", s.handleFit)
		})
	})

	s.router = r
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Wait blocks until every background orchestration run has finished. Called
// during graceful shutdown after the listener has stopped.
func (s *Server) Wait() { s.wg.Wait() }

// startRun launches one orchestration run for an uploaded document unless one
// is already in flight for the same id.
func (s *Server) startRun(doc models.Document, data []byte) {
	s.mu.Lock()
	if _, running := s.inFlight[doc.PdfID]; running {
		s.mu.Unlock()
		s.log.Info("Run already in flight, not starting another.", "pdfId", doc.PdfID)
		return
	}
	s.inFlight[doc.PdfID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	activeRuns.Inc()
	go func() {
		defer s.wg.Done()
		defer activeRuns.Dec()
		defer func() {
			s.mu.Lock()
			delete(s.inFlight, doc.PdfID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(s.baseCtx, runTimeout)
		defer cancel()

		orch := orchestrator.New(s.acc, s.log)
		result, err := orch.Run(ctx, doc, data)
		switch {
		case errors.Is(err, orchestrator.ErrSummaryFetch):
			processingOutcomes.WithLabelValues("summary_fetch_failed").Inc()
			s.log.Error("Processing succeeded but the summary fetch failed.", "pdfId", doc.PdfID, "error", err)
		case err != nil:
			processingOutcomes.WithLabelValues("error").Inc()
			s.log.Error("Orchestration run failed.", "pdfId", doc.PdfID, "error", err)
		default:
			processingOutcomes.WithLabelValues(string(result.State)).Inc()
			s.log.Info("Orchestration run finished.", "pdfId", doc.PdfID, "state", string(result.State))
		}
	}()
}
