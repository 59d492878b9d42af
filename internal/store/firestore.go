package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/planscope/planscope/internal/models"
)

// Firestore collection names, matching the processing backend's tables.
const (
	CollectionSummaries = "pdf_summary"
	CollectionProgress  = "pdf_processing_progress"
)

// FirestoreRowStore implements RowStore on Firestore. Documents are keyed by
// pdfId, so upserts are plain sets and single-row reads are direct lookups.
type FirestoreRowStore struct {
	client *firestore.Client
}

// NewFirestoreRowStore wraps an existing Firestore client.
func NewFirestoreRowStore(client *firestore.Client) *FirestoreRowStore {
	return &FirestoreRowStore{client: client}
}

func (s *FirestoreRowStore) summaryDoc(pdfID string) *firestore.DocumentRef {
	return s.client.Collection(CollectionSummaries).Doc(pdfID)
}

func (s *FirestoreRowStore) progressDoc(pdfID string) *firestore.DocumentRef {
	return s.client.Collection(CollectionProgress).Doc(pdfID)
}

// UpsertSummaryName merges the identity fields into the summary row without
// touching a result the backend may already have written.
func (s *FirestoreRowStore) UpsertSummaryName(ctx context.Context, pdfID, pdfName string) error {
	_, err := s.summaryDoc(pdfID).Set(ctx, map[string]interface{}{
		"pdf_id":   pdfID,
		"pdf_name": pdfName,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert pdf_summary for %s: %w", pdfID, err)
	}
	return nil
}

// SetSummaryPageInfo records the page metadata extracted at ingest time.
func (s *FirestoreRowStore) SetSummaryPageInfo(ctx context.Context, pdfID string, pageCount int, dims []models.PageDim) error {
	_, err := s.summaryDoc(pdfID).Set(ctx, map[string]interface{}{
		"pdf_id":     pdfID,
		"page_count": pageCount,
		"page_dims":  dims,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to set page info for %s: %w", pdfID, err)
	}
	return nil
}

// GetSummary reads one summary row. A missing document maps to ErrNotFound;
// any other status is a genuine read failure.
func (s *FirestoreRowStore) GetSummary(ctx context.Context, pdfID string) (models.PdfSummaryRow, error) {
	snap, err := s.summaryDoc(pdfID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.PdfSummaryRow{}, ErrNotFound
	}
	if err != nil {
		return models.PdfSummaryRow{}, fmt.Errorf("failed to get pdf_summary for %s: %w", pdfID, err)
	}
	var row models.PdfSummaryRow
	if err := snap.DataTo(&row); err != nil {
		return models.PdfSummaryRow{}, fmt.Errorf("failed to decode pdf_summary for %s: %w", pdfID, err)
	}
	return row, nil
}

// ListProcessed returns rows whose summary field is non-null. The null filter
// runs client-side; consumers treat the list as eventually consistent.
func (s *FirestoreRowStore) ListProcessed(ctx context.Context) ([]models.PdfSummaryRow, error) {
	snaps, err := s.client.Collection(CollectionSummaries).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list pdf_summary rows: %w", err)
	}
	var out []models.PdfSummaryRow
	for _, snap := range snaps {
		var row models.PdfSummaryRow
		if err := snap.DataTo(&row); err != nil {
			return nil, fmt.Errorf("failed to decode pdf_summary %s: %w", snap.Ref.ID, err)
		}
		if row.Processed() {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *FirestoreRowStore) UpsertProgress(ctx context.Context, p models.ProcessingProgress) error {
	if _, err := s.progressDoc(p.PdfID).Set(ctx, p); err != nil {
		return fmt.Errorf("failed to upsert progress for %s: %w", p.PdfID, err)
	}
	return nil
}

func (s *FirestoreRowStore) GetProgress(ctx context.Context, pdfID string) (models.ProcessingProgress, error) {
	snap, err := s.progressDoc(pdfID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.ProcessingProgress{}, ErrNotFound
	}
	if err != nil {
		return models.ProcessingProgress{}, fmt.Errorf("failed to get progress for %s: %w", pdfID, err)
	}
	var p models.ProcessingProgress
	if err := snap.DataTo(&p); err != nil {
		return models.ProcessingProgress{}, fmt.Errorf("failed to decode progress for %s: %w", pdfID, err)
	}
	return p, nil
}

// WatchProgress subscribes to the document's progress row via a Firestore
// snapshot listener. The initial snapshot only confirms the subscription is
// active; subsequent snapshots are delivered as updates in commit order.
func (s *FirestoreRowStore) WatchProgress(ctx context.Context, pdfID string) (Subscription, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	snaps := s.progressDoc(pdfID).Snapshots(watchCtx)
	sub := newProgressSub(cancel)

	go func() {
		defer snaps.Stop()
		defer close(sub.updates)
		first := true
		for {
			snap, err := snaps.Next()
			if err != nil {
				if watchCtx.Err() == nil {
					sub.fail(fmt.Errorf("progress watch for %s ended: %w", pdfID, err))
				}
				sub.markReady()
				return
			}
			if first {
				first = false
				sub.markReady()
				continue
			}
			if !snap.Exists() {
				continue
			}
			var p models.ProcessingProgress
			if err := snap.DataTo(&p); err != nil {
				sub.fail(fmt.Errorf("failed to decode progress update for %s: %w", pdfID, err))
				return
			}
			select {
			case sub.updates <- p:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return sub, nil
}
