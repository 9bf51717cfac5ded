// Command seed publishes an event data file to the Kafka topic the map reads
// when EVENTS_SOURCE=kafka, one JSON record per message.
//
// Usage:
//
//	KAFKA_BROKERS=localhost:9092 KAFKA_TOPIC=road-events go run ./cmd/seed -file data/events.json
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/road-event-map/internal/adapter/file"
	kafkaadapter "github.com/couchcryptid/road-event-map/internal/adapter/kafka"
	"github.com/couchcryptid/road-event-map/internal/config"
	"github.com/couchcryptid/road-event-map/internal/observability"
)

func main() {
	path := flag.String("file", "", "event data file (empty: the bundled snapshot)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.KafkaTimeout)
	defer cancel()

	source := file.NewSource(*path)
	records, err := source.Load(ctx)
	if err != nil {
		logger.Error("failed to load events", "source", source.Name(), "error", err)
		os.Exit(1)
	}

	pub := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer pub.Close()

	if err := pub.Publish(ctx, records); err != nil {
		logger.Error("failed to publish events", "topic", cfg.KafkaTopic, "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "source", source.Name(), "records", len(records))
}
