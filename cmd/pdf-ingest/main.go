package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/planscope/planscope/internal/config"
	"github.com/planscope/planscope/internal/gcp"
	"github.com/planscope/planscope/internal/ingest"
	"github.com/planscope/planscope/internal/store"
)

var (
	ingestInstance *ingest.Function
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("IngestUpload", ingestUpload)
}

func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework failed to start", "error", err)
		os.Exit(1)
	}
}

func newIngest(ctx context.Context, bucket string) (*ingest.Function, error) {
	cfg, err := config.IngestFromEnv()
	if err != nil {
		return nil, err
	}
	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	blobs := store.NewGCSBlobStore(storageClient, bucket)
	rows := store.NewFirestoreRowStore(firestoreClient)
	return ingest.New(blobs, rows, slog.Default()), nil
}

// ingestUpload is the Cloud Function entry point for storage finalize events.
func ingestUpload(ctx context.Context, e cloudevents.Event) error {
	var gcsEvent ingest.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Clients are initialized once, bound to the first event's bucket. Every
	// deployment triggers off exactly one bucket.
	once.Do(func() {
		ingestInstance, initErr = newIngest(context.Background(), gcsEvent.Bucket)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	return ingestInstance.Process(ctx, gcsEvent)
}
