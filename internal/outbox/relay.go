package outbox

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Publisher delivers one outbox message to the outside world. It must be
// idempotent: the relay guarantees at-least-once delivery, not exactly-once.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// KafkaPublisher publishes outbox messages to a Kafka topic using a
// synchronous producer, keyed by event type so consumers see per-type
// ordering.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

// Publish sends one message and waits for broker acknowledgement.
func (p *KafkaPublisher) Publish(_ context.Context, msg Message) error {
	_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.EventType),
		Value: sarama.ByteEncoder(msg.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_id"), Value: []byte(msg.ID)},
			{Key: []byte("event_type"), Value: []byte(msg.EventType)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", msg.ID)
	}
	return nil
}

// Close shuts down the underlying producer.
func (p *KafkaPublisher) Close() error { return p.producer.Close() }

// Relay drains pending outbox rows into a Publisher. A message is marked
// processed only after the publisher acknowledges it, so a crash between
// publish and mark results in a duplicate, never a loss.
type Relay struct {
	repo      Repository
	publisher Publisher
	interval  time.Duration
	batch     int
}

// NewRelay creates a relay polling every interval, at most batch rows per poll.
func NewRelay(repo Repository, publisher Publisher, interval time.Duration, batch int) *Relay {
	return &Relay{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
	}
}

// Run polls until ctx is cancelled. Publication failures are logged and
// retried on the next tick; they never stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				zctx.From(ctx).Warn("Outbox drain failed", zap.Error(err))
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) error {
	pending, err := r.repo.PullPending(ctx, r.batch)
	if err != nil {
		return errors.Wrap(err, "pull pending")
	}

	for _, msg := range pending {
		if err := r.publisher.Publish(ctx, msg); err != nil {
			// Leave the row pending; the next tick retries from here.
			return errors.Wrap(err, "publish")
		}
		if err := r.repo.MarkProcessed(ctx, msg.ID); err != nil {
			return errors.Wrapf(err, "mark processed %s", msg.ID)
		}
	}
	return nil
}
