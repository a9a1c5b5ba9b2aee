//go:build unit

package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"kicks-exchange/internal/pkg/clock"
	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/usecase/shared"
	"kicks-exchange/tests/common/builder"
	"kicks-exchange/tests/common/memstore"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleEvent(typ shared.EventType) shared.Event {
	return shared.Event{
		ID:          uuid.New(),
		Type:        typ,
		Key:         builder.DefaultKey().String(),
		AggregateID: uuid.New(),
		OccurredAt:  builder.BaseTime,
		Payload:     json.RawMessage(`{"price":10000}`),
	}
}

// recordingPublisher fails every event whose id is in failing.
type recordingPublisher struct {
	mu        sync.Mutex
	failing   map[uuid.UUID]bool
	published []uuid.UUID
	closed    bool
}

func (p *recordingPublisher) Publish(_ context.Context, e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing[e.ID] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, e.ID)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func appendEvents(t *testing.T, store *memstore.Store, events ...shared.Event) {
	t.Helper()
	err := store.Within(context.Background(), func(ctx context.Context, tx shared.Tx) error {
		return tx.Outbox().Append(ctx, events...)
	})
	require.NoError(t, err)
}

func rowFor(rows []memstore.OutboxRow, id uuid.UUID) memstore.OutboxRow {
	for _, r := range rows {
		if r.Event.ID == id {
			return r
		}
	}
	return memstore.OutboxRow{}
}

// ================================================================================
// Relay
// ================================================================================

func TestRelay_Drain(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewTestConfig()

	t.Run("publishes due events and marks them sent", func(t *testing.T) {
		store := memstore.New()
		clk := clock.NewMockClock(builder.BaseTime.Add(time.Minute))
		pub := &recordingPublisher{}
		relay := NewRelay(store, pub, clk, discardLogger(), cfg)

		a, b := sampleEvent(shared.EventOfferSettled), sampleEvent(shared.EventOfferCancelled)
		appendEvents(t, store, a, b)

		assert.Equal(t, 2, relay.Drain(ctx))
		assert.Equal(t, []uuid.UUID{a.ID, b.ID}, pub.published)

		rows := store.Outbox()
		for _, r := range rows {
			assert.True(t, r.Sent)
			assert.Equal(t, 1, r.Attempts)
		}
		assert.Equal(t, 0, relay.Drain(ctx), "sent events are not delivered again")
	})

	t.Run("failed event is retried after backoff", func(t *testing.T) {
		store := memstore.New()
		clk := clock.NewMockClock(builder.BaseTime.Add(time.Minute))
		bad, good := sampleEvent(shared.EventOfferSettled), sampleEvent(shared.EventOfferExpired)
		pub := &recordingPublisher{failing: map[uuid.UUID]bool{bad.ID: true}}
		relay := NewRelay(store, pub, clk, discardLogger(), cfg)
		appendEvents(t, store, bad, good)

		assert.Equal(t, 1, relay.Drain(ctx))

		failed := rowFor(store.Outbox(), bad.ID)
		assert.False(t, failed.Sent)
		assert.Equal(t, 1, failed.Attempts)
		assert.Equal(t, "broker unavailable", failed.LastError)
		assert.Equal(t, clk.Now().Add(cfg.Events.RelayInterval), failed.NextAttemptAt)

		assert.Equal(t, 0, relay.Drain(ctx), "not due yet")

		pub.failing = nil
		clk.Add(cfg.Events.RelayInterval)
		assert.Equal(t, 1, relay.Drain(ctx))
		assert.True(t, rowFor(store.Outbox(), bad.ID).Sent)
	})

	t.Run("large backlog is drained in batches", func(t *testing.T) {
		store := memstore.New()
		clk := clock.NewMockClock(builder.BaseTime.Add(time.Minute))
		small := cfg
		small.Events.BatchSize = 2
		relay := NewRelay(store, &recordingPublisher{}, clk, discardLogger(), small)

		for range 5 {
			appendEvents(t, store, sampleEvent(shared.EventOfferSettled))
		}
		assert.Equal(t, 5, relay.Drain(ctx))
	})

	t.Run("storage failure stops the pass", func(t *testing.T) {
		store := memstore.New()
		clk := clock.NewMockClock(builder.BaseTime.Add(time.Minute))
		relay := NewRelay(store, &recordingPublisher{}, clk, discardLogger(), cfg)
		appendEvents(t, store, sampleEvent(shared.EventOfferSettled))
		store.Fail(memstore.OpCommit, 1, nil)

		assert.Equal(t, 0, relay.Drain(ctx))
		assert.False(t, store.Outbox()[0].Sent)
		assert.Equal(t, 1, relay.Drain(ctx))
	})
}

func TestRelay_NotifyWakesLoop(t *testing.T) {
	store := memstore.New()
	cfg := config.NewTestConfig()
	cfg.Events.RelayInterval = time.Hour
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, clock.NewMockClock(builder.BaseTime.Add(time.Minute)), discardLogger(), cfg)

	relay.Start()
	appendEvents(t, store, sampleEvent(shared.EventOfferSettled))
	relay.Notify()
	relay.Notify()

	require.Eventually(t, func() bool {
		rows := store.Outbox()
		return len(rows) == 1 && rows[0].Sent
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, relay.Stop(ctx))
	assert.True(t, pub.closed)
}

func TestRelay_StartTwiceRunsOneLoop(t *testing.T) {
	store := memstore.New()
	cfg := config.NewTestConfig()
	cfg.Events.RelayInterval = time.Hour
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, clock.NewMockClock(builder.BaseTime.Add(time.Minute)), discardLogger(), cfg)

	relay.Start()
	relay.Start()
	appendEvents(t, store, sampleEvent(shared.EventOfferSettled))
	relay.Notify()

	require.Eventually(t, func() bool {
		rows := store.Outbox()
		return len(rows) == 1 && rows[0].Sent
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NotPanics(t, func() {
		require.NoError(t, relay.Stop(ctx))
	})
	require.NoError(t, relay.Stop(ctx), "stopping again is a no-op")
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.published, 1)
}

func TestRelayBackoff(t *testing.T) {
	base := 2 * time.Second
	testCases := []struct {
		attempts int
		expect   time.Duration
	}{
		{attempts: 1, expect: 2 * time.Second},
		{attempts: 2, expect: 4 * time.Second},
		{attempts: 5, expect: 32 * time.Second},
		{attempts: 9, expect: maxRelayBackoff},
		{attempts: 40, expect: maxRelayBackoff},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, relayBackoff(tc.attempts, base), "attempts=%d", tc.attempts)
	}
}

// ================================================================================
// Publishers
// ================================================================================

func TestSaramaPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	e := sampleEvent(shared.EventOfferSettled)

	t.Run("success: keyed by market with event headers", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			key, err := msg.Key.Encode()
			if err != nil {
				return err
			}
			if string(key) != e.Key {
				return errors.New("unexpected partition key " + string(key))
			}
			if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != e.ID.String() {
				return errors.New("missing event-id header")
			}
			return nil
		})
		pub := newSaramaPublisher(producer, "offer-engine.events")

		require.NoError(t, pub.Publish(ctx, e))
		require.NoError(t, pub.Close())
	})

	t.Run("error: broker rejects the write", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrNotEnoughReplicas)
		pub := newSaramaPublisher(producer, "offer-engine.events")

		err := pub.Publish(ctx, e)
		require.Error(t, err)
		assert.ErrorIs(t, err, sarama.ErrNotEnoughReplicas)
		require.NoError(t, pub.Close())
	})
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaGoPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	e := sampleEvent(shared.EventOfferExpired)

	t.Run("success", func(t *testing.T) {
		w := &fakeWriter{}
		pub := &KafkaGoPublisher{writer: w}

		require.NoError(t, pub.Publish(ctx, e))
		require.Len(t, w.msgs, 1)
		assert.Equal(t, e.Key, string(w.msgs[0].Key))

		var decoded shared.Event
		require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
		assert.Equal(t, e.ID, decoded.ID)
		assert.Equal(t, e.Type, decoded.Type)
	})

	t.Run("error", func(t *testing.T) {
		pub := &KafkaGoPublisher{writer: &fakeWriter{err: errors.New("leader not available")}}
		assert.Error(t, pub.Publish(ctx, e))
	})
}

func TestNewPublisher(t *testing.T) {
	cfg := config.NewTestConfig()

	cfg.Events.Driver = config.EventsDriverLog
	pub, err := NewPublisher(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogPublisher{}, pub)

	cfg.Events.Driver = config.EventsDriverKafkaGo
	pub, err = NewPublisher(cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &KafkaGoPublisher{}, pub)

	cfg.Events.Driver = "carrier-pigeon"
	_, err = NewPublisher(cfg, discardLogger())
	assert.Error(t, err)
}
