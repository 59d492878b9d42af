package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/planscope/planscope/internal/coords"
	"github.com/planscope/planscope/internal/models"
	"github.com/planscope/planscope/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	PdfID   string `json:"pdfId"`
	PdfName string `json:"pdfName"`
}

// handleUpload accepts a multipart PDF, hashes it into its document id and
// starts the orchestration run in the background. The response only confirms
// receipt; progress arrives through the progress endpoints.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	doc := models.NewDocument(header.Filename, data)
	uploadsTotal.Inc()
	s.startRun(doc, data)
	writeJSON(w, http.StatusAccepted, uploadResponse{PdfID: doc.PdfID, PdfName: doc.PdfName})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.acc.ListCompletedSummaries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}
	if summaries == nil {
		summaries = []models.PdfSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")
	row, err := s.acc.GetSummaryRow(r.Context(), pdfID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	decoded, err := row.Decode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored summary is unreadable")
		return
	}
	writeJSON(w, http.StatusOK, decoded)
}

type viewResponse struct {
	Summary  models.PdfSummary          `json:"summary"`
	Progress *models.ProcessingProgress `json:"progress,omitempty"`
}

// handleView assembles everything a document view needs in one round trip,
// fetching the summary row and the progress row concurrently.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")

	var (
		row      models.PdfSummaryRow
		progress *models.ProcessingProgress
	)
	eg, ctx := errgroup.WithContext(r.Context())
	eg.Go(func() error {
		var err error
		row, err = s.acc.GetSummaryRow(ctx, pdfID)
		return err
	})
	eg.Go(func() error {
		progress = s.acc.GetProcessingProgress(ctx, pdfID)
		return nil
	})
	if err := eg.Wait(); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown document")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}

	decoded, err := row.Decode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored summary is unreadable")
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{Summary: decoded, Progress: progress})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")
	data, err := s.acc.FetchDocumentBytes(r.Context(), pdfID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", pdfID+".pdf"))
	_, _ = w.Write(data)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")
	progress := s.acc.GetProcessingProgress(r.Context(), pdfID)
	if progress == nil {
		writeError(w, http.StatusNotFound, "no processing record")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleEvents streams progress updates for one document as server-sent
// events. The stream starts with the current snapshot when one exists and
// closes after the terminal update or when the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	sub, err := s.acc.SubscribeProgress(ctx, pdfID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Close()

	select {
	case <-sub.Ready():
	case <-ctx.Done():
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(p models.ProcessingProgress) bool {
		raw, err := json.Marshal(p)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", raw); err != nil {
			return false
		}
		flusher.Flush()
		return !p.Terminal()
	}

	if current := s.acc.GetProcessingProgress(ctx, pdfID); current != nil {
		if !send(*current) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.Updates():
			if !ok {
				return
			}
			if !send(update) {
				return
			}
		}
	}
}

type fitRequest struct {
	Page          int           `json:"page"`
	Boxes         []models.BBox `json:"boxes"`
	ViewportWidth float64       `json:"viewportWidth"`
}

type fitResponse struct {
	CanvasWidth  float64       `json:"canvasWidth"`
	CanvasHeight float64       `json:"canvasHeight"`
	Scale        float64       `json:"scale"`
	ScrollLeft   float64       `json:"scrollLeft"`
	ScrollTop    float64       `json:"scrollTop"`
	Outlines     []models.BBox `json:"outlines"`
}

// handleFit computes the zoom/scroll viewport framing the given boxes on one
// page, using the page dimensions captured at ingest.
func (s *Server) handleFit(w http.ResponseWriter, r *http.Request) {
	pdfID := chi.URLParam(r, "pdfId")

	var req fitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid fit request")
		return
	}

	row, err := s.acc.GetSummaryRow(r.Context(), pdfID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown document")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load document")
		return
	}
	if req.Page < 1 || req.Page > len(row.PageDims) {
		writeError(w, http.StatusBadRequest, "page out of range or dimensions not ingested yet")
		return
	}

	dim := row.PageDims[req.Page-1]
	fit, ok := coords.FitToBoxes(req.Boxes, coords.Size{Width: dim.Width, Height: dim.Height}, req.ViewportWidth)
	if !ok {
		writeError(w, http.StatusBadRequest, "fit requires boxes and a positive viewport width")
		return
	}
	writeJSON(w, http.StatusOK, fitResponse{
		CanvasWidth:  fit.Canvas.Width,
		CanvasHeight: fit.Canvas.Height,
		Scale:        fit.Scale,
		ScrollLeft:   fit.ScrollLeft,
		ScrollTop:    fit.ScrollTop,
		Outlines:     fit.Outlines(req.Boxes),
	})
}
