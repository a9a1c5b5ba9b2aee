package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"kicks-exchange/internal/pkg/config"
	"kicks-exchange/internal/pkg/errs"
	"kicks-exchange/internal/usecase/shared"
)

// Publisher delivers one outbox event to the broker. Implementations must
// block until the broker acknowledged the write.
type Publisher interface {
	Publish(ctx context.Context, e shared.Event) error
	Close() error
}

// NewPublisher picks the broker client named by EVENTS_DRIVER.
func NewPublisher(cfg config.Config, logger *slog.Logger) (Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverSarama, "":
		return NewSaramaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
	case config.EventsDriverKafkaGo:
		return NewKafkaGoPublisher(cfg.Events.Brokers, cfg.Events.Topic), nil
	case config.EventsDriverLog:
		return NewLogPublisher(logger), nil
	default:
		return nil, errs.Newf("unknown events driver %q", cfg.Events.Driver)
	}
}

func encode(e shared.Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(err, "failed to encode event")
	}
	return b, nil
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e shared.Event) error {
	p.logger.Info("event published",
		slog.String("event_id", e.ID.String()),
		slog.String("type", string(e.Type)),
		slog.String("key", e.Key),
		slog.String("aggregate_id", e.AggregateID.String()))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
