package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planscope/planscope/internal/config"
	"github.com/planscope/planscope/internal/gcp"
	"github.com/planscope/planscope/internal/server"
	"github.com/planscope/planscope/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	config.LoadDotenv()
	cfg, err := config.ServerFromEnv()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	acc, err := buildAccessor(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to construct backends", "error", err)
		os.Exit(1)
	}

	srv := server.New(ctx, acc, logger)
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is listening.", "addr", cfg.Addr, "devMode", cfg.DevMode)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server crashed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		httpServer.SetKeepAlivesEnabled(false)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not shut down gracefully", "error", err)
		}
		srv.Wait()
		logger.Info("Shutdown complete.")
	}
}

// buildAccessor wires the data-access facade against GCP, or against the
// in-memory backend in dev mode so the server runs without credentials.
func buildAccessor(ctx context.Context, cfg config.ServerConfig, logger *slog.Logger) (*store.DataAccessor, error) {
	if cfg.DevMode {
		logger.Warn("DEV_MODE set: using the in-memory backend. Nothing is persisted.")
		backend := store.NewMemoryBackend()
		return store.NewDataAccessor(backend, backend, backend, logger), nil
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}
	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	executionsClient, err := gcp.NewExecutionsClient(ctx)
	if err != nil {
		return nil, err
	}

	blobs := store.NewGCSBlobStore(storageClient, cfg.DocumentBucket)
	rows := store.NewFirestoreRowStore(firestoreClient)
	trigger := store.NewWorkflowTrigger(executionsClient, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
	return store.NewDataAccessor(blobs, rows, trigger, logger), nil
}
