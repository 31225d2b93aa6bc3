package workers

import (
	"context"
	"sync"
	"time"

	"github.com/PrathyushaPonnala/sales-prediction/internal/metrics"
	"github.com/PrathyushaPonnala/sales-prediction/internal/ml/trend"
	"github.com/PrathyushaPonnala/sales-prediction/pkg/logger"
)

// TrendModelStore persists fitted per-product trend models.
// Satisfied by artifacts.Store.
type TrendModelStore interface {
	SaveTrendModel(ctx context.Context, m *trend.Model, productID string) error
}

// saverStopTimeout bounds how long Stop waits for the queue to drain.
const saverStopTimeout = time.Minute

type saveRequest struct {
	productCode string
	model       *trend.Model
}

// ModelSaver persists fitted trend models in the background so forecast
// requests never wait on artifact storage writes. The queue is bounded;
// when it is full new requests are dropped rather than blocking the caller,
// since a dropped save only costs a refit on the next request.
type ModelSaver struct {
	store   TrendModelStore
	queue   chan saveRequest
	timeout time.Duration
	log     *logger.Logger

	mu        sync.RWMutex
	closed    bool
	started   bool
	startOnce sync.Once
	done      chan struct{}
}

// NewModelSaver creates a saver with the given queue capacity and per-save timeout.
func NewModelSaver(store TrendModelStore, queueSize int, timeout time.Duration) *ModelSaver {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ModelSaver{
		store:   store,
		queue:   make(chan saveRequest, queueSize),
		timeout: timeout,
		log:     logger.Get().With("worker", "model_saver"),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine. Safe to call once; later calls are no-ops.
func (s *ModelSaver) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()

		go s.run()
		s.log.Info("Model saver started", "queue_size", cap(s.queue), "save_timeout", s.timeout)
	})
}

// Enqueue queues a model for persistence without blocking.
// Returns false if the queue is full or the saver has been stopped.
func (s *ModelSaver) Enqueue(productCode string, m *trend.Model) bool {
	if m == nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.queue <- saveRequest{productCode: productCode, model: m}:
		return true
	default:
		s.log.Warnw("Model save queue full, dropping save",
			"product_code", productCode,
		)
		metrics.RecordModelSaveDropped()
		return false
	}
}

// Stop closes the queue and waits for queued saves to finish.
func (s *ModelSaver) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	close(s.queue)
	s.mu.Unlock()

	if !started {
		return
	}

	s.log.Info("Stopping model saver...")

	select {
	case <-s.done:
		s.log.Info("Model saver stopped, queue drained")
	case <-time.After(saverStopTimeout):
		s.log.Warn("Model saver shutdown timed out, abandoning queued saves")
	}
}

func (s *ModelSaver) run() {
	defer close(s.done)

	for req := range s.queue {
		s.save(req)
	}
}

// save writes one model under its own timeout. A fresh context is used on
// purpose: the originating request has usually completed by the time the
// save runs.
func (s *ModelSaver) save(req saveRequest) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.store.SaveTrendModel(ctx, req.model, req.productCode)
	metrics.RecordModelSave(time.Since(start), err)

	if err != nil {
		s.log.Errorw("Failed to persist trend model",
			"product_code", req.productCode,
			"error", err,
		)
		return
	}

	s.log.Debugw("Trend model persisted",
		"product_code", req.productCode,
		"duration", time.Since(start),
	)
}
