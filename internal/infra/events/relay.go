package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/usecase/shared"

	"github.com/google/uuid"
)

const maxRelayBackoff = 5 * time.Minute

// Relay moves committed outbox rows to the broker. Each batch is claimed,
// published and marked inside one database transaction, so a crash between
// publish and commit re-sends the batch.
type Relay struct {
	uow         shared.UnitOfWork
	publisher   Publisher
	clock       clock.Clock
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	once      sync.Once
}

func NewRelay(uow shared.UnitOfWork, publisher Publisher, clk clock.Clock, logger *slog.Logger, cfg config.Config) *Relay {
	batch := cfg.Events.BatchSize
	if batch < 1 {
		batch = 100
	}
	interval := cfg.Events.RelayInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		uow:         uow,
		publisher:   publisher,
		clock:       clk,
		logger:      logger,
		interval:    interval,
		batchSize:   batch,
		maxAttempts: cfg.Events.MaxAttempts,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Notify never blocks; pending wake-ups collapse into one.
func (r *Relay) Notify() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Start is a no-op after the first call.
func (r *Relay) Start() {
	r.startOnce.Do(func() { go r.loop() })
}

func (r *Relay) Stop(ctx context.Context) error {
	r.once.Do(func() { close(r.stop) })
	select {
	case <-r.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return r.publisher.Close()
}

func (r *Relay) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-r.stop
		cancel()
	}()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		case <-r.wake:
		}
		r.Drain(ctx)
	}
}

// Drain relays batches until no due event is left and returns how many
// events were delivered.
func (r *Relay) Drain(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		sent, claimed, err := r.relayBatch(ctx)
		total += sent
		if err != nil {
			r.logger.Error("outbox relay batch failed", slog.String("error", err.Error()))
			return total
		}
		if claimed < r.batchSize || sent == 0 {
			return total
		}
	}
	return total
}

func (r *Relay) relayBatch(ctx context.Context) (sent, claimed int, err error) {
	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		sent, claimed = 0, 0
		now := r.clock.Now()
		records, err := tx.Outbox().ClaimPending(ctx, now, r.batchSize)
		if err != nil {
			return err
		}
		claimed = len(records)

		delivered := make([]uuid.UUID, 0, len(records))
		for _, rec := range records {
			if err := r.publisher.Publish(ctx, rec.Event); err != nil {
				if err := r.markFailed(ctx, tx, rec, err, now); err != nil {
					return err
				}
				continue
			}
			delivered = append(delivered, rec.ID)
		}
		if err := tx.Outbox().MarkSent(ctx, delivered, now); err != nil {
			return err
		}
		sent = len(delivered)
		return nil
	})
	if err != nil {
		return 0, claimed, err
	}
	return sent, claimed, nil
}

func (r *Relay) markFailed(ctx context.Context, tx shared.Tx, rec shared.OutboxRecord, cause error, now time.Time) error {
	attempts := rec.Attempts + 1
	level := slog.LevelWarn
	if r.maxAttempts > 0 && attempts >= r.maxAttempts {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "event publish failed",
		slog.String("event_id", rec.ID.String()),
		slog.String("type", string(rec.Type)),
		slog.Int("attempts", attempts),
		slog.String("error", cause.Error()))

	return tx.Outbox().MarkFailed(ctx, rec.ID, cause.Error(), now.Add(relayBackoff(attempts, r.interval)))
}

func relayBackoff(attempts int, base time.Duration) time.Duration {
	if attempts > 16 {
		return maxRelayBackoff
	}
	wait := time.Duration(1<<(attempts-1)) * base
	if wait > maxRelayBackoff {
		return maxRelayBackoff
	}
	return wait
}
