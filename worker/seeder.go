package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chopfinder/messaging"
	"chopfinder/models"
	"chopfinder/restaurants"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	BatchSize      = 50
	WorkerPoolSize = 4

	// WritesPerSecond throttles batch writes to stay inside backend quotas.
	WritesPerSecond = 5
)

// Notifier announces a finished catalog write.
type Notifier interface {
	NotifyCatalogChange(ctx context.Context, change messaging.CatalogChange) error
}

// Seeder uploads restaurants to a backend in batches through a bounded worker pool.
type Seeder struct {
	Writer   restaurants.Writer
	Backend  string
	Batch    int
	Workers  int
	Limiter  *rate.Limiter
	Notifier Notifier
	Logger   *log.Logger
}

// NewSeeder returns a Seeder with the default batch size, pool size and write rate.
func NewSeeder(w restaurants.Writer, backend string, logger *log.Logger) *Seeder {
	return &Seeder{
		Writer:  w,
		Backend: backend,
		Batch:   BatchSize,
		Workers: WorkerPoolSize,
		Limiter: rate.NewLimiter(rate.Limit(WritesPerSecond), 1),
		Logger:  logger.WithPrefix("seed"),
	}
}

// Run writes list and returns how many restaurants were stored. Failed batches are
// logged and reported together; the change event lists only the stored ids.
func (s *Seeder) Run(ctx context.Context, list []models.Restaurant) (int, error) {
	batch := s.Batch
	if batch <= 0 {
		batch = BatchSize
	}
	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}

	s.Logger.Info("seeding restaurants", "backend", s.Backend, "count", len(list), "batch", batch, "concurrency", workers)
	started := time.Now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored []string
		errs   []error
	)
	semaphore := make(chan struct{}, workers)

	for start := 0; start < len(list); start += batch {
		end := min(start+batch, len(list))
		chunk := list[start:end]

		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return len(stored), ctx.Err()
		}
		wg.Add(1)

		go func(offset int, chunk []models.Restaurant) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if s.Limiter != nil {
				if err := s.Limiter.Wait(ctx); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					return
				}
			}

			if err := s.Writer.Upsert(ctx, chunk); err != nil {
				s.Logger.Error("batch failed", "offset", offset, "size", len(chunk), "err", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("batch at %d: %w", offset, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			for _, r := range chunk {
				stored = append(stored, r.ID)
			}
			mu.Unlock()
			s.Logger.Debug("batch stored", "offset", offset, "size", len(chunk))
		}(start, chunk)
	}
	wg.Wait()

	s.Logger.Info("seeding finished", "stored", len(stored), "failed_batches", len(errs), "took", time.Since(started))

	if len(stored) > 0 && s.Notifier != nil {
		change := messaging.CatalogChange{Backend: s.Backend, IDs: stored, At: time.Now()}
		if err := s.Notifier.NotifyCatalogChange(ctx, change); err != nil {
			s.Logger.Warn("could not publish catalog change", "err", err)
		}
	}

	return len(stored), errors.Join(errs...)
}
