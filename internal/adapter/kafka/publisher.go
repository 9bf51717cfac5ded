package kafka

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher writes event records to a topic, one JSON record per message.
type Publisher struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a producer for topic. Every message goes to the first
// partition so a snapshot read back keeps the published order.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               kafkago.BalancerFunc(firstPartition),
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, clock: clockwork.NewRealClock(), logger: logger}
}

func firstPartition(_ kafkago.Message, partitions ...int) int {
	if len(partitions) == 0 {
		return 0
	}
	return partitions[0]
}

// Publish serializes and writes records in a single WriteMessages call.
func (p *Publisher) Publish(ctx context.Context, records []domain.RawEventRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := p.clock.Now()
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := recordMessage(i, records[i], now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	p.logger.Info("published event records", "topic", p.writer.Topic, "count", len(msgs))
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// recordMessage marshals a record into a Kafka message keyed by its position
// in the published snapshot.
func recordMessage(index int, rec domain.RawEventRecord, now time.Time) (kafkago.Message, error) {
	data, err := domain.EncodeRecord(rec)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(domain.EventID(index)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source_index", Value: []byte(strconv.Itoa(index))},
			{Key: "published_at", Value: []byte(now.Format(time.RFC3339))},
		},
	}, nil
}
