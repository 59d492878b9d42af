package store

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
)

// WorkflowTrigger implements Trigger by creating a Cloud Workflows execution.
// The execution runs the external processing pipeline; its result is never
// awaited here.
type WorkflowTrigger struct {
	client           *executions.Client
	projectID        string
	workflowLocation string
	workflowID       string
}

// NewWorkflowTrigger wraps an existing executions client.
func NewWorkflowTrigger(client *executions.Client, projectID, location, workflowID string) *WorkflowTrigger {
	return &WorkflowTrigger{
		client:           client,
		projectID:        projectID,
		workflowLocation: location,
		workflowID:       workflowID,
	}
}

// Invoke starts one execution with the document id as its argument. The
// payload key is pdfId everywhere. The processing backend rejects a second
// execution for a document already in flight; callers swallow that rejection.
func (t *WorkflowTrigger) Invoke(ctx context.Context, pdfID string) error {
	payload, err := json.Marshal(map[string]string{"pdfId": pdfID})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s",
			t.projectID, t.workflowLocation, t.workflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := t.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to create workflow execution for %s: %w", pdfID, err)
	}
	return nil
}
