package relay

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sweeper re-drives relay logs whose scheduled retry has come due. It scans
// the store in bounded batches and invokes the delivery engine for each hit;
// the engine's conditional claim guarantees a record racing an in-flight
// attempt is skipped rather than double-processed.
//
// The sweeper runs continuously in the background, processing one batch per
// interval. Records due beyond the batch cap are picked up on the next cycle.
//
// Thread safety: Safe for concurrent use. Each batch is processed sequentially.
type Sweeper struct {
	logs      RelayLogRepository
	engine    *DeliveryEngine
	logger    Logger
	batchSize int
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper) error

// NewSweeper creates a new Sweeper with the provided options.
//
// Required options:
//   - WithSweeperRepository: relay log repository
//   - WithSweeperEngine: delivery engine
//   - WithSweeperLogger: logger instance
//
// Optional options:
//   - WithSweeperBatchSize: batch cap per sweep (default: 100)
func NewSweeper(opts ...SweeperOption) (*Sweeper, error) {
	s := &Sweeper{
		batchSize: 100,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply sweeper option", err)
		}
	}

	if s.logs == nil {
		return nil, NewError(ErrCodeConfiguration, "RelayLogRepository is required (use WithSweeperRepository)")
	}
	if s.engine == nil {
		return nil, NewError(ErrCodeConfiguration, "DeliveryEngine is required (use WithSweeperEngine)")
	}
	if s.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithSweeperLogger)")
	}

	return s, nil
}

// WithSweeperRepository sets the relay log repository.
func WithSweeperRepository(logs RelayLogRepository) SweeperOption {
	return func(s *Sweeper) error {
		if logs == nil {
			return fmt.Errorf("logs cannot be nil")
		}
		s.logs = logs
		return nil
	}
}

// WithSweeperEngine sets the delivery engine driven by the sweeper.
func WithSweeperEngine(engine *DeliveryEngine) SweeperOption {
	return func(s *Sweeper) error {
		if engine == nil {
			return fmt.Errorf("engine cannot be nil")
		}
		s.engine = engine
		return nil
	}
}

// WithSweeperLogger sets the logger instance.
func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithSweeperBatchSize sets the number of due records processed per sweep.
// Must be > 0. Bounds sweep cost; later-due items wait for the next cycle.
func WithSweeperBatchSize(size int) SweeperOption {
	return func(s *Sweeper) error {
		if size <= 0 {
			return fmt.Errorf("batch size must be > 0, got %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// ProcessDueRetries runs one sweep: it selects relay logs with
// status=PENDING, next_retry_at <= now and remaining attempt budget, ordered
// by next_retry_at ASC and capped at the batch size, and re-drives each
// through the delivery engine.
//
// Returns the number of records whose attempt completed without a machinery
// fault. Individual record failures are logged but don't stop the batch.
func (s *Sweeper) ProcessDueRetries(ctx context.Context) (int, error) {
	items, err := s.logs.FindDueRetries(ctx, time.Now(), s.batchSize)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to find due retries: %w", err)
	}

	processed := 0
	for i := range items {
		outcome, err := s.engine.AttemptDelivery(ctx, items[i].ID)
		if err != nil {
			s.logger.Errorf("Failed to process due retry %s: %v", items[i].ID, err)
			continue
		}
		s.logger.Debugf("Swept relay log %s: outcome=%s", items[i].ID, outcome)
		processed++
	}

	return processed, nil
}

// Run starts the sweeper event loop. It runs until the context is canceled,
// processing one batch per interval.
//
// This method blocks and should typically be run in a goroutine.
//
// Example:
//
//	ctx := context.Background()
//	go sweeper.Run(ctx, 5*time.Second)
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Retry sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Retry sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.ProcessDueRetries(ctx)
			if err != nil {
				s.logger.Errorf("Error processing due retries: %v", err)
				continue
			}
			if count > 0 {
				s.logger.Infof("Sweep processed %d due retries", count)
			}
		}
	}
}
