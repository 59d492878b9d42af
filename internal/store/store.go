// Package store is the single point of access to the hosted backend: row
// storage and realtime progress subscriptions on Firestore, PDF blobs on
// Cloud Storage, and the remote-processing trigger on Cloud Workflows.
// Everything is behind narrow interfaces so the facade can also run against
// the in-memory backend used for local development and tests.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/planscope/planscope/internal/models"
)

// ErrNotFound signals an absent row or blob, as distinct from a failed read.
var ErrNotFound = errors.New("not found")

// BlobStore stores raw PDF bytes keyed by object path.
type BlobStore interface {
	// Upload writes the object. An already-existing object is a success:
	// content-addressed paths imply identical bytes.
	Upload(ctx context.Context, path string, data []byte) error
	// Download returns the object bytes or ErrNotFound.
	Download(ctx context.Context, path string) ([]byte, error)
	// Exists probes for the object by listing the path prefix.
	Exists(ctx context.Context, path string) (bool, error)
}

// RowStore holds the pdf_summary and pdf_processing_progress tables.
type RowStore interface {
	UpsertSummaryName(ctx context.Context, pdfID, pdfName string) error
	SetSummaryPageInfo(ctx context.Context, pdfID string, pageCount int, dims []models.PageDim) error
	GetSummary(ctx context.Context, pdfID string) (models.PdfSummaryRow, error)
	ListProcessed(ctx context.Context) ([]models.PdfSummaryRow, error)
	UpsertProgress(ctx context.Context, p models.ProcessingProgress) error
	GetProgress(ctx context.Context, pdfID string) (models.ProcessingProgress, error)
	// WatchProgress opens a realtime subscription to update events on one
	// document's progress row. Events arrive in commit order.
	WatchProgress(ctx context.Context, pdfID string) (Subscription, error)
}

// Trigger invokes the external processing function for a document. The
// invocation is fire-and-forget: completion is observed through the progress
// row, never through the invocation's own result.
type Trigger interface {
	Invoke(ctx context.Context, pdfID string) error
}

// Subscription is a live feed of progress-row updates for one document.
type Subscription interface {
	// Ready is closed once the subscription is confirmed active. Callers
	// must wait for it before triggering processing, so an already-running
	// pipeline's updates cannot be missed.
	Ready() <-chan struct{}
	// Updates delivers row states in the order the backend commits them.
	// The channel is closed when the subscription ends.
	Updates() <-chan models.ProcessingProgress
	// Err reports why the subscription ended, nil on a clean close.
	Err() error
	// Close tears the subscription down. Safe to call more than once.
	Close()
}

// progressSub is the Subscription implementation shared by the Firestore and
// in-memory backends.
type progressSub struct {
	ready     chan struct{}
	updates   chan models.ProcessingProgress
	readyOnce sync.Once
	stopOnce  sync.Once
	stop      func()

	mu  sync.Mutex
	err error
}

func newProgressSub(stop func()) *progressSub {
	return &progressSub{
		ready:   make(chan struct{}),
		updates: make(chan models.ProcessingProgress, 16),
		stop:    stop,
	}
}

func (s *progressSub) Ready() <-chan struct{}                     { return s.ready }
func (s *progressSub) Updates() <-chan models.ProcessingProgress { return s.updates }

func (s *progressSub) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *progressSub) Close() {
	s.stopOnce.Do(s.stop)
}

func (s *progressSub) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *progressSub) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
