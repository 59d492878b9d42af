package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/planscope/planscope/internal/models"
)

// MemoryBackend implements BlobStore, RowStore and Trigger on guarded maps.
// It backs the server when no GCP project is configured and doubles for the
// hosted backend in tests: calling UpsertProgress plays the role of the
// external pipeline writing progress, and registered watchers see each write
// as a realtime update.
type MemoryBackend struct {
	mu          sync.RWMutex
	blobs       map[string][]byte
	summaries   map[string]models.PdfSummaryRow
	progress    map[string]models.ProcessingProgress
	watchers    map[string][]*progressSub
	invocations map[string]int

	// TriggerErr, when set, makes Invoke fail. Used to exercise the
	// swallowed-trigger-failure path.
	TriggerErr error
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		blobs:       make(map[string][]byte),
		summaries:   make(map[string]models.PdfSummaryRow),
		progress:    make(map[string]models.ProcessingProgress),
		watchers:    make(map[string][]*progressSub),
		invocations: make(map[string]int),
	}
}

func (b *MemoryBackend) Upload(ctx context.Context, path string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (b *MemoryBackend) Download(ctx context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Exists(ctx context.Context, path string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blobs[path]
	return ok, nil
}

func (b *MemoryBackend) UpsertSummaryName(ctx context.Context, pdfID, pdfName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := b.summaries[pdfID]
	row.PdfID = pdfID
	row.PdfName = pdfName
	b.summaries[pdfID] = row
	return nil
}

func (b *MemoryBackend) SetSummaryPageInfo(ctx context.Context, pdfID string, pageCount int, dims []models.PageDim) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := b.summaries[pdfID]
	row.PdfID = pdfID
	row.PageCount = pageCount
	row.PageDims = dims
	b.summaries[pdfID] = row
	return nil
}

// SetSummaryResult writes the result JSON, standing in for the processing
// backend's final write.
func (b *MemoryBackend) SetSummaryResult(pdfID string, resultJSON string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row := b.summaries[pdfID]
	row.PdfID = pdfID
	row.PdfSummary = &resultJSON
	b.summaries[pdfID] = row
}

func (b *MemoryBackend) GetSummary(ctx context.Context, pdfID string) (models.PdfSummaryRow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	row, ok := b.summaries[pdfID]
	if !ok {
		return models.PdfSummaryRow{}, ErrNotFound
	}
	return row, nil
}

func (b *MemoryBackend) ListProcessed(ctx context.Context) ([]models.PdfSummaryRow, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []models.PdfSummaryRow
	for _, row := range b.summaries {
		if row.Processed() {
			out = append(out, row)
		}
	}
	return out, nil
}

// UpsertProgress stores the row and fans it out to every watcher of that
// document. A watcher more than a buffer's worth behind misses updates; the
// hosted backend's listeners have the same best-effort property.
func (b *MemoryBackend) UpsertProgress(ctx context.Context, p models.ProcessingProgress) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.progress[p.PdfID] = p
	for _, sub := range b.watchers[p.PdfID] {
		select {
		case sub.updates <- p:
		default:
		}
	}
	return nil
}

func (b *MemoryBackend) GetProgress(ctx context.Context, pdfID string) (models.ProcessingProgress, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.progress[pdfID]
	if !ok {
		return models.ProcessingProgress{}, ErrNotFound
	}
	return p, nil
}

func (b *MemoryBackend) WatchProgress(ctx context.Context, pdfID string) (Subscription, error) {
	stopped := make(chan struct{})
	var sub *progressSub
	sub = newProgressSub(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		watchers := b.watchers[pdfID]
		for i, w := range watchers {
			if w == sub {
				b.watchers[pdfID] = append(watchers[:i], watchers[i+1:]...)
				break
			}
		}
		close(sub.updates)
		close(stopped)
	})

	b.mu.Lock()
	b.watchers[pdfID] = append(b.watchers[pdfID], sub)
	b.mu.Unlock()
	sub.markReady()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-stopped:
		}
	}()
	return sub, nil
}

func (b *MemoryBackend) Invoke(ctx context.Context, pdfID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.TriggerErr != nil {
		return b.TriggerErr
	}
	b.invocations[pdfID]++
	return nil
}

// Invocations reports how many times processing was triggered for a document.
func (b *MemoryBackend) Invocations(pdfID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.invocations[pdfID]
}

// WatcherCount reports the live subscriptions for a document.
func (b *MemoryBackend) WatcherCount(pdfID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.watchers[pdfID])
}
