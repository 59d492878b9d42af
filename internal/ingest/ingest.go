// Package ingest enriches a freshly uploaded document when its storage object
// lands: it verifies the content-addressed name, validates the PDF and writes
// the page count and per-page dimensions onto the summary row. Triggering the
// processing pipeline is the viewer's job, not this function's.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/planscope/planscope/internal/models"
	"github.com/planscope/planscope/internal/store"
)

// GCSEvent is the storage object-finalize payload.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

var objectNamePattern = regexp.MustCompile(`^public/([0-9a-f]{64})\.pdf$`)

// PdfIDFromObjectName extracts the document id from an uploaded object's name.
// ok is false for objects outside the public/<sha256>.pdf layout, which the
// function ignores.
func PdfIDFromObjectName(name string) (string, bool) {
	m := objectNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Function holds the ingest function's dependencies for the lifetime of the
// process.
type Function struct {
	blobs store.BlobStore
	rows  store.RowStore
	log   *slog.Logger
}

// New builds the ingest function over the given backends.
func New(blobs store.BlobStore, rows store.RowStore, log *slog.Logger) *Function {
	if log == nil {
		log = slog.Default()
	}
	return &Function{blobs: blobs, rows: rows, log: log}
}

// Process handles one finalized storage object. Objects outside the document
// layout are skipped cleanly; a hash mismatch or an unreadable PDF marks the
// document's progress row failed and returns the error.
func (f *Function) Process(ctx context.Context, e GCSEvent) error {
	logCtx := f.log.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	pdfID, ok := PdfIDFromObjectName(e.Name)
	if !ok {
		logCtx.Info("Object is not an uploaded document. Skipping.")
		return nil
	}
	logCtx = logCtx.With("pdfId", pdfID)
	logCtx.Info("Ingesting uploaded document.")

	data, err := f.blobs.Download(ctx, e.Name)
	if err != nil {
		logCtx.Error("Failed to download uploaded object", "error", err)
		return fmt.Errorf("failed to download %s: %w", e.Name, err)
	}

	// The object name is the content hash; a mismatch means the object was
	// written outside the upload path and cannot be trusted.
	if got := models.HashBytes(data); got != pdfID {
		return f.fail(ctx, logCtx, pdfID, "uploaded object does not match its content address",
			fmt.Errorf("content hash %s does not match object name", got))
	}

	pageCount, dims, err := readPageInfo(data)
	if err != nil {
		return f.fail(ctx, logCtx, pdfID, "uploaded file is not a readable PDF", err)
	}

	if err := f.rows.SetSummaryPageInfo(ctx, pdfID, pageCount, dims); err != nil {
		logCtx.Error("Failed to write page info", "error", err)
		return fmt.Errorf("failed to write page info for %s: %w", pdfID, err)
	}
	logCtx.Info("Document ingested.", "pageCount", pageCount)
	return nil
}

// fail records a terminal failed outcome on the progress row so any viewer
// waiting on this document stops, then surfaces the original error.
func (f *Function) fail(ctx context.Context, logCtx *slog.Logger, pdfID, message string, originalErr error) error {
	logCtx.Error(message, "error", originalErr)
	success := false
	progress := models.ProcessingProgress{
		PdfID:      pdfID,
		TotalSteps: 1,
		CurrStep:   1,
		Success:    &success,
		Msg:        message,
	}
	if err := f.rows.UpsertProgress(ctx, progress); err != nil {
		logCtx.Error("CRITICAL: Failed to mark progress row failed after an ingest error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

// readPageInfo validates the PDF with relaxed validation and returns its page
// count and per-page media-box dimensions in PDF units.
func readPageInfo(data []byte) (int, []models.PageDim, error) {
	tempDir, err := os.MkdirTemp("", "pdf-ingest-*")
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return 0, nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(sourcePath, optimizedPath, cfg); err != nil {
		return 0, nil, fmt.Errorf("failed to validate/optimize PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get page count: %w", err)
	}

	pageDims, err := api.PageDimsFile(optimizedPath)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	dims := make([]models.PageDim, 0, len(pageDims))
	for _, d := range pageDims {
		dims = append(dims, models.PageDim{Width: d.Width, Height: d.Height})
	}
	return pageCount, dims, nil
}
