package commands

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"kicks-exchange/internal/domain/offer"
	"kicks-exchange/internal/domain/offerbook"
	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"

	"golang.org/x/sync/errgroup"
)

// Sweeper expires offers whose expiresAt has passed and re-drives
// settlements that ran out of retries. Each market is swept under its own
// lock, so a slow market never holds up the others.
type Sweeper struct {
	engine   *Engine
	markets  *Markets
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration
	workers  int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(engine *Engine, markets *Markets, clk clock.Clock, logger *slog.Logger, cfg config.Config) *Sweeper {
	workers := cfg.Engine.SweepWorkers
	if workers < 1 {
		workers = 1
	}
	return &Sweeper{
		engine:   engine,
		markets:  markets,
		clock:    clk,
		logger:   logger,
		interval: cfg.Engine.SweepInterval,
		workers:  workers,
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
}

// Stop waits for an in-flight pass to finish or for ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				s.logger.Info("expiry sweep finished", slog.Int("expired", n))
			}
		}
	}
}

// Sweep runs one pass over every market and returns how many offers it
// expired. Pending settlements are reconciled first, so an offer put back in
// its book can expire in the same pass.
func (s *Sweeper) Sweep(ctx context.Context) int {
	if n := s.engine.Reconcile(ctx); n > 0 {
		s.logger.Info("pending settlements reconciled", slog.Int("resolved", n))
	}

	var expired atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, key := range s.markets.Keys() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := s.sweepKey(gctx, key)
			expired.Add(int64(n))
			if err != nil {
				s.logger.Error("expiry sweep failed for market",
					slog.String("product_id", key.ProductID.String()),
					slog.String("size_variant_id", key.SizeVariantID.String()),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(expired.Load())
}

func (s *Sweeper) sweepKey(ctx context.Context, key offer.Key) (int, error) {
	lockedCtx := context.WithoutCancel(ctx)

	var n int
	err := s.markets.withLock(key, func(book *offerbook.Book) error {
		now := s.clock.Now()
		if !book.HasExpired(now) {
			return nil
		}
		for _, o := range book.Expired(now) {
			if err := s.engine.expireLocked(lockedCtx, book, o, now); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
