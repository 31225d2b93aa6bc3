package bootstrap

import (
	"context"
	"sync"
	"time"

	pgclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/postgres"
	redisclient "github.com/PrathyushaPonnala/sales-prediction/internal/adapters/redis"
	"github.com/PrathyushaPonnala/sales-prediction/internal/api"
	"github.com/PrathyushaPonnala/sales-prediction/internal/forecast"
	"github.com/PrathyushaPonnala/sales-prediction/internal/workers"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/errors"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 150 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order:
// 1. No new requests accepted
// 2. Workers finish cleanly
// 3. Queued model saves drain to artifact storage
// 4. Model sessions released once nothing can predict anymore
// 5. Logs and errors flushed
// 6. Database connections last (other components may need them)
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	workerScheduler *workers.Scheduler,
	modelSaver *workers.ModelSaver,
	models *forecast.ResolvedModels,
	pgClient *pgclient.Client,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/8] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	defer httpCancel()

	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}

	// ========================================
	// Step 2: Stop Background Workers
	// ========================================
	log.Info("[2/8] Stopping background workers...")
	if err := workerScheduler.Stop(); err != nil {
		log.Error("Workers shutdown failed", "error", err)
	} else {
		log.Info("✓ Workers stopped")
	}

	// ========================================
	// Step 3: Drain Model Save Queue
	// Fitted models still in the queue are written out so the next
	// process start does not refit them from scratch
	// ========================================
	log.Info("[3/8] Draining model save queue...")
	if modelSaver != nil {
		modelSaver.Stop()
	}

	// ========================================
	// Step 4: Wait for Remaining Goroutines
	// ========================================
	log.Info("[4/8] Waiting for goroutines...")
	l.waitForGoroutines(wg, 5*time.Second, log)

	// ========================================
	// Step 5: Release Model Sessions
	// Nothing can request a prediction past this point, so the native
	// ONNX session behind the correction model can go
	// ========================================
	log.Info("[5/8] Releasing model sessions...")
	if models != nil {
		models.Close()
		log.Info("✓ Model sessions released")
	}

	// ========================================
	// Step 6: Flush Error Tracker
	// ========================================
	log.Info("[6/8] Flushing error tracker...")
	l.flushErrorTracker(errorTracker, shutdownCtx, log)

	// ========================================
	// Step 7: Sync Logs
	// ========================================
	log.Info("[7/8] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	} else {
		log.Info("✓ Logs synced")
	}

	// ========================================
	// Step 8: Close Database Connections
	// LAST - other components may need them during shutdown
	// ========================================
	log.Info("[8/8] Closing database connections...")
	l.closeDatabases(pgClient, redisClient, log)

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warn("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(tracker errors.Tracker, ctx context.Context, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Error("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(
	pgClient *pgclient.Client,
	redisClient *redisclient.Client,
	log *logger.Logger,
) {
	var closeErrs errors.MultiError

	if pgClient != nil {
		closeErrs.Add(errors.Wrap(pgClient.Close(), "postgres"))
	}

	if redisClient != nil {
		closeErrs.Add(errors.Wrap(redisClient.Close(), "redis"))
	}

	if err := closeErrs.ToError(); err != nil {
		log.Error("Database close errors", "error", err)
	} else {
		log.Info("✓ Database connections closed")
	}
}
