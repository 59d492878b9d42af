package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/planscope/planscope/internal/models"
)

const summaryListCacheKey = "pdf_summary_list"

// ObjectPath is the storage path convention for uploaded documents.
func ObjectPath(pdfID string) string {
	return fmt.Sprintf("public/%s.pdf", pdfID)
}

// DataAccessor is the typed facade over the backend primitives. It is
// constructed explicitly and passed to whatever needs it; there is no hidden
// package-level instance.
type DataAccessor struct {
	blobs   BlobStore
	rows    RowStore
	trigger Trigger
	cache   *gocache.Cache
	log     *slog.Logger
}

// NewDataAccessor wires a facade over the given backend implementations.
func NewDataAccessor(blobs BlobStore, rows RowStore, trigger Trigger, log *slog.Logger) *DataAccessor {
	if log == nil {
		log = slog.Default()
	}
	return &DataAccessor{
		blobs:   blobs,
		rows:    rows,
		trigger: trigger,
		cache:   gocache.New(5*time.Minute, 10*time.Minute),
		log:     log,
	}
}

// UploadDocument stores the PDF bytes under the document's content-addressed
// path. Failures are logged and reported as false; callers continue
// best-effort because the existence check downstream is authoritative.
func (a *DataAccessor) UploadDocument(ctx context.Context, pdfID string, data []byte) bool {
	if err := a.blobs.Upload(ctx, ObjectPath(pdfID), data); err != nil {
		a.log.Error("Failed to upload document", "pdfId", pdfID, "error", err)
		return false
	}
	return true
}

// DocumentExists probes storage for the document. Probe errors are logged and
// reported as not-uploaded, the conservative default.
func (a *DataAccessor) DocumentExists(ctx context.Context, pdfID string) bool {
	ok, err := a.blobs.Exists(ctx, ObjectPath(pdfID))
	if err != nil {
		a.log.Error("Failed to check document existence", "pdfId", pdfID, "error", err)
		return false
	}
	return ok
}

// InsertSummaryRow upserts the document's summary row with its display name.
// Safe to call repeatedly.
func (a *DataAccessor) InsertSummaryRow(ctx context.Context, pdfID, pdfName string) error {
	if err := a.rows.UpsertSummaryName(ctx, pdfID, pdfName); err != nil {
		return fmt.Errorf("failed to upsert summary row for %s: %w", pdfID, err)
	}
	return nil
}

// CreateProcessingRow upserts a fresh progress row: currStep 0, totalSteps 1,
// success null. Calling it while processing is in flight resets progress, so
// callers check GetProcessingProgress first.
func (a *DataAccessor) CreateProcessingRow(ctx context.Context, pdfID string) error {
	if err := a.rows.UpsertProgress(ctx, models.NewProcessingProgress(pdfID)); err != nil {
		return fmt.Errorf("failed to create processing row for %s: %w", pdfID, err)
	}
	return nil
}

// GetProcessingProgress returns the document's progress row, or nil when no
// processing has been recorded. Read failures other than no-rows are logged
// and reported as absent.
func (a *DataAccessor) GetProcessingProgress(ctx context.Context, pdfID string) *models.ProcessingProgress {
	p, err := a.rows.GetProgress(ctx, pdfID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		a.log.Error("Failed to read processing progress", "pdfId", pdfID, "error", err)
		return nil
	}
	return &p
}

// GetSummaryIfProcessed returns the decoded summary once the result JSON is
// non-null. Absent rows, unprocessed rows, and read failures all report nil;
// failures are logged first.
func (a *DataAccessor) GetSummaryIfProcessed(ctx context.Context, pdfID string) *models.PdfSummary {
	row, err := a.rows.GetSummary(ctx, pdfID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		a.log.Error("Failed to read summary row", "pdfId", pdfID, "error", err)
		return nil
	}
	if !row.Processed() {
		return nil
	}
	summary, err := row.Decode()
	if err != nil {
		a.log.Error("Failed to decode summary row", "pdfId", pdfID, "error", err)
		return nil
	}
	return &summary
}

// GetSummaryRow returns the raw summary row regardless of processing state.
func (a *DataAccessor) GetSummaryRow(ctx context.Context, pdfID string) (models.PdfSummaryRow, error) {
	return a.rows.GetSummary(ctx, pdfID)
}

// ListCompletedSummaries returns every document whose summary is non-null.
// The list is an eventually-consistent read replica: it is cached until
// InvalidateSummaryList is called.
func (a *DataAccessor) ListCompletedSummaries(ctx context.Context) ([]models.PdfSummary, error) {
	if cached, ok := a.cache.Get(summaryListCacheKey); ok {
		return cached.([]models.PdfSummary), nil
	}
	rows, err := a.rows.ListProcessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed summaries: %w", err)
	}
	out := make([]models.PdfSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := row.Decode()
		if err != nil {
			a.log.Error("Skipping summary row with bad json", "pdfId", row.PdfID, "error", err)
			continue
		}
		out = append(out, summary)
	}
	a.cache.Set(summaryListCacheKey, out, gocache.DefaultExpiration)
	return out, nil
}

// InvalidateSummaryList drops the cached completed-summary list. The
// orchestrator calls it exactly once per document, when the progress row
// reaches a terminal state.
func (a *DataAccessor) InvalidateSummaryList() {
	a.cache.Delete(summaryListCacheKey)
}

// FetchDocumentBytes downloads the document's PDF from storage.
func (a *DataAccessor) FetchDocumentBytes(ctx context.Context, pdfID string) ([]byte, error) {
	data, err := a.blobs.Download(ctx, ObjectPath(pdfID))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", pdfID, err)
	}
	return data, nil
}

// TriggerRemoteProcessing fires the external processing function. Invocation
// failures, including duplicate-invocation rejections, are swallowed after
// logging: the progress-row subscription is the authoritative completion
// signal, not the trigger's own result.
func (a *DataAccessor) TriggerRemoteProcessing(ctx context.Context, pdfID string) bool {
	if err := a.trigger.Invoke(ctx, pdfID); err != nil {
		a.log.Error("Failed to invoke remote processing", "pdfId", pdfID, "error", err)
		return false
	}
	return true
}

// SubscribeProgress opens a realtime subscription on the document's progress
// row. The caller owns the subscription's lifetime.
func (a *DataAccessor) SubscribeProgress(ctx context.Context, pdfID string) (Subscription, error) {
	sub, err := a.rows.WatchProgress(ctx, pdfID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to progress for %s: %w", pdfID, err)
	}
	return sub, nil
}
