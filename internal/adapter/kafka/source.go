// Package kafka reads event snapshots from, and publishes them to, a Kafka
// topic carrying one JSON record per message.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/road-event-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// SnapshotSource reads every partition of a topic from the first offset up to
// the high-water mark observed when Load starts. Records are ordered by
// partition, then offset. It implements catalog.Source.
type SnapshotSource struct {
	brokers []string
	topic   string
	timeout time.Duration
	idle    time.Duration
	dialer  *kafkago.Dialer
	logger  *slog.Logger
}

// defaultPartitionIdle is how long a partition read waits for the next
// message before treating the remaining offsets below the high-water mark as
// compacted away or taken by transaction markers.
const defaultPartitionIdle = 2 * time.Second

// NewSnapshotSource creates a source for topic. timeout bounds a whole Load.
func NewSnapshotSource(brokers []string, topic string, timeout time.Duration, logger *slog.Logger) *SnapshotSource {
	return &SnapshotSource{
		brokers: brokers,
		topic:   topic,
		timeout: timeout,
		idle:    defaultPartitionIdle,
		dialer:  &kafkago.Dialer{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Name describes where records come from, for logs.
func (s *SnapshotSource) Name() string {
	return "kafka:" + s.topic
}

// Load implements catalog.Source.
func (s *SnapshotSource) Load(ctx context.Context) ([]domain.RawEventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	partitions, err := s.partitions(ctx)
	if err != nil {
		return nil, err
	}

	var records []domain.RawEventRecord
	for _, p := range partitions {
		msgs, err := s.readPartition(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("read %s/%d: %w", s.topic, p.ID, err)
		}
		records = append(records, mapMessages(msgs, s.logger)...)
	}
	s.logger.Debug("kafka snapshot read",
		"topic", s.topic,
		"partitions", len(partitions),
		"records", len(records),
	)
	return records, nil
}

func (s *SnapshotSource) partitions(ctx context.Context) ([]kafkago.Partition, error) {
	var errs []error
	for _, broker := range s.brokers {
		conn, err := s.dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		partitions, err := conn.ReadPartitions(s.topic)
		_ = conn.Close()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sort.Slice(partitions, func(i, j int) bool { return partitions[i].ID < partitions[j].ID })
		return partitions, nil
	}
	return nil, fmt.Errorf("list partitions of %s: %w", s.topic, errors.Join(errs...))
}

// readPartition returns the messages in [first, high-water) of one partition.
func (s *SnapshotSource) readPartition(ctx context.Context, p kafkago.Partition) ([]kafkago.Message, error) {
	leader := net.JoinHostPort(p.Leader.Host, strconv.Itoa(p.Leader.Port))
	conn, err := s.dialer.DialLeader(ctx, "tcp", leader, s.topic, p.ID)
	if err != nil {
		return nil, fmt.Errorf("dial leader: %w", err)
	}
	first, last, err := conn.ReadOffsets()
	_ = conn.Close()
	if err != nil {
		return nil, fmt.Errorf("read offsets: %w", err)
	}
	if last <= first {
		return nil, nil
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   s.brokers,
		Topic:     s.topic,
		Partition: p.ID,
		MinBytes:  1,
		MaxBytes:  10e6,
		Dialer:    s.dialer,
	})
	defer reader.Close()
	if err := reader.SetOffset(first); err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	msgs := make([]kafkago.Message, 0, last-first)
	for {
		readCtx, cancel := context.WithTimeout(ctx, s.idle)
		msg, err := reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			if partitionDrained(ctx, err) {
				s.logger.Debug("partition tail unreadable, ending read early",
					"topic", s.topic,
					"partition", p.ID,
					"high_water", last,
					"read", len(msgs),
				)
				return msgs, nil
			}
			return nil, err
		}
		msgs = append(msgs, msg)
		if reachedHighWater(msg, last) {
			return msgs, nil
		}
	}
}

// reachedHighWater reports whether msg is the last readable message below
// the high-water mark captured at the start of the read.
func reachedHighWater(msg kafkago.Message, last int64) bool {
	return msg.Offset+1 >= last
}

// partitionDrained reports whether a read error only means no further
// message arrived within the idle window while the load itself is still live.
func partitionDrained(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

// mapMessages decodes one record per message. A message that is not a JSON
// object becomes an empty record so it is rejected like any other record
// without coordinates.
func mapMessages(msgs []kafkago.Message, logger *slog.Logger) []domain.RawEventRecord {
	records := make([]domain.RawEventRecord, len(msgs))
	for i, msg := range msgs {
		rec, err := domain.DecodeRecord(msg.Value)
		if err != nil {
			logger.Debug("undecodable event message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		records[i] = rec
	}
	return records
}
