// Package orchestrator drives the per-document processing lifecycle: upload,
// existence check, remote trigger, realtime progress observation and final
// summary retrieval.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/planscope/planscope/internal/models"
	"github.com/planscope/planscope/internal/store"
)

// State names one position in the document lifecycle.
type State string

const (
	StateIdle             State = "IDLE"
	StateUploading        State = "UPLOADING"
	StateCheckingExisting State = "CHECKING_EXISTING"
	StateAlreadyProcessed State = "ALREADY_PROCESSED"
	StateSubscribing      State = "SUBSCRIBING"
	StateWaiting          State = "WAITING"
	StateDoneSuccess      State = "DONE_SUCCESS"
	StateDoneFailure      State = "DONE_FAILURE"
)

// Terminal reports whether the lifecycle has finished in this state.
func (s State) Terminal() bool {
	switch s {
	case StateAlreadyProcessed, StateDoneSuccess, StateDoneFailure:
		return true
	}
	return false
}

// ErrSummaryFetch marks the secondary failure where the progress row reported
// success but the summary could not then be loaded. It is distinct from a
// remote-reported processing failure.
var ErrSummaryFetch = errors.New("failed to load summary after processing")

// Result is the outcome of one orchestration run.
type Result struct {
	State    State
	Progress models.ProcessingProgress
	Summary  *models.PdfSummary
}

// Orchestrator runs the lifecycle for one document view at a time. It owns
// the progress subscription for the duration of a Run and always closes it on
// the way out, whether the run completes or is cancelled.
type Orchestrator struct {
	acc *store.DataAccessor
	log *slog.Logger

	// OnState and OnProgress, when set, observe lifecycle transitions and
	// progress-row updates. Both are called from the Run goroutine.
	OnState    func(State)
	OnProgress func(models.ProcessingProgress)
}

// New builds an orchestrator over the data-access facade.
func New(acc *store.DataAccessor, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{acc: acc, log: log}
}

func (o *Orchestrator) setState(s State) {
	if o.OnState != nil {
		o.OnState(s)
	}
}

func (o *Orchestrator) emitProgress(p models.ProcessingProgress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

// Run executes the whole sequence for one selected file: hash and upload the
// bytes if absent, short-circuit when a summary already exists, otherwise
// subscribe to the progress row, trigger processing if nobody else has, and
// consume updates until the backend commits an outcome.
//
// The check-then-trigger step is best-effort de-duplication, not mutual
// exclusion: two first viewers racing through it can both trigger, and the
// backend rejects the second execution.
func (o *Orchestrator) Run(ctx context.Context, doc models.Document, data []byte) (Result, error) {
	logCtx := o.log.With("pdfId", doc.PdfID, "pdfName", doc.PdfName)

	// Upload failure degrades rather than stops: the document may already be
	// in storage from an earlier session.
	o.setState(StateUploading)
	if !o.acc.DocumentExists(ctx, doc.PdfID) {
		if !o.acc.UploadDocument(ctx, doc.PdfID, data) {
			logCtx.Warn("Upload failed, continuing with existence checks.")
		}
	}

	o.setState(StateCheckingExisting)
	if summary := o.acc.GetSummaryIfProcessed(ctx, doc.PdfID); summary != nil {
		logCtx.Info("Document already processed, skipping subscription and trigger.")
		o.setState(StateAlreadyProcessed)
		success := true
		return Result{
			State:    StateAlreadyProcessed,
			Progress: models.ProcessingProgress{PdfID: doc.PdfID, TotalSteps: 1, CurrStep: 1, Success: &success},
			Summary:  summary,
		}, nil
	}

	sub, err := o.acc.SubscribeProgress(ctx, doc.PdfID)
	if err != nil {
		return Result{State: StateCheckingExisting}, err
	}
	defer sub.Close()
	o.setState(StateSubscribing)

	select {
	case <-sub.Ready():
	case <-ctx.Done():
		return Result{State: StateSubscribing}, ctx.Err()
	}

	// Race-safe re-check now that the subscription is live: another viewer
	// may have started processing between the summary check and here.
	var progress models.ProcessingProgress
	if existing := o.acc.GetProcessingProgress(ctx, doc.PdfID); existing != nil {
		logCtx.Info("Processing already under way, adopting existing progress.",
			"currStep", existing.CurrStep, "totalSteps", existing.TotalSteps)
		progress = *existing
		if progress.Terminal() {
			return o.finish(ctx, logCtx, sub, doc, progress)
		}
	} else {
		if err := o.acc.InsertSummaryRow(ctx, doc.PdfID, doc.PdfName); err != nil {
			return Result{State: StateSubscribing}, err
		}
		if err := o.acc.CreateProcessingRow(ctx, doc.PdfID); err != nil {
			return Result{State: StateSubscribing}, err
		}
		o.acc.TriggerRemoteProcessing(ctx, doc.PdfID)
		progress = models.NewProcessingProgress(doc.PdfID)
	}

	o.setState(StateWaiting)
	o.emitProgress(progress)

	for {
		select {
		case <-ctx.Done():
			return Result{State: StateWaiting, Progress: progress}, ctx.Err()
		case update, ok := <-sub.Updates():
			if !ok {
				if err := sub.Err(); err != nil {
					return Result{State: StateWaiting, Progress: progress}, err
				}
				return Result{State: StateWaiting, Progress: progress},
					fmt.Errorf("progress subscription for %s closed before a terminal update", doc.PdfID)
			}
			progress = update
			o.emitProgress(progress)
			if progress.Terminal() {
				return o.finish(ctx, logCtx, sub, doc, progress)
			}
		}
	}
}

// finish handles a terminal progress row: unsubscribe first, then invalidate
// the completed-summary cache exactly once, then resolve the outcome.
func (o *Orchestrator) finish(ctx context.Context, logCtx *slog.Logger, sub store.Subscription, doc models.Document, progress models.ProcessingProgress) (Result, error) {
	sub.Close()
	o.acc.InvalidateSummaryList()

	if progress.Failed() {
		logCtx.Info("Remote processing failed.", "msg", progress.Msg)
		o.setState(StateDoneFailure)
		return Result{State: StateDoneFailure, Progress: progress}, nil
	}

	summary := o.acc.GetSummaryIfProcessed(ctx, doc.PdfID)
	if summary == nil {
		logCtx.Error("Progress row reported success but the summary could not be loaded.")
		return Result{State: StateDoneSuccess, Progress: progress},
			fmt.Errorf("%w: %s", ErrSummaryFetch, doc.PdfID)
	}
	o.setState(StateDoneSuccess)
	return Result{State: StateDoneSuccess, Progress: progress, Summary: summary}, nil
}
