// Command feedd consumes a market-data feed from Kafka, maintains one
// order book per configured instrument and publishes book events back to
// Kafka. Snapshots are persisted to Redis so a restarted daemon can warm
// up before the feed resyncs it.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/velostrade/bookcore/config"
	"github.com/velostrade/bookcore/pkg/backend"
	redisbackend "github.com/velostrade/bookcore/pkg/backend/redis"
	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/db/queue"
	"github.com/velostrade/bookcore/pkg/engine"
	"github.com/velostrade/bookcore/pkg/logging"
	"github.com/velostrade/bookcore/pkg/messaging"
	"github.com/velostrade/bookcore/pkg/messaging/kafka"
	"github.com/velostrade/bookcore/pkg/otel"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Feed.LogLevel,
		Pretty: cfg.Feed.LogFormat == "pretty",
		Output: os.Stdout,
	})

	// Initialize OpenTelemetry
	providers, cleanup, err := otel.Init(otel.Config{
		ServiceName:      otel.ServiceBookFeed,
		ServiceVersion:   "1.0.0",
		Endpoint:         cfg.Feed.OtelEndpoint,
		CollectorEnabled: cfg.Feed.OtelEnabled,
	})
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
	}
	defer cleanup()

	metrics, err := otel.NewBookMetrics(providers.Meter("feedd"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create book metrics")
	}

	// Snapshot persistence via Redis
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	store := redisbackend.NewSnapshotStore(redisClient, cfg.Redis.Prefix, nil)

	// Book events go out through the pooled Kafka producer
	sender, err := queue.GetSender()
	if err != nil {
		logger.Warn().Err(err).Msg("Event publishing disabled")
		sender = nil
	}

	manager := engine.NewManager(logger, sender, store)
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instruments := cfg.Instruments
	if len(instruments) == 0 {
		instruments = []string{"TESTINSTR"}
	}
	for _, instr := range instruments {
		opts := core.Options{
			IsSparse:      cfg.Book.Sparse,
			QtyKind:       core.QtyContracts,
			WithOrdersLog: cfg.Book.OrdersLog,
			WithSeqNums:   true,
			WithRptSeqs:   true,
			Relaxed:       cfg.Book.Relaxed,
			NumLevels:     cfg.Book.NumLevels,
			MaxDepth:      cfg.Book.MaxDepth,
			MaxOrders:     cfg.Book.MaxOrders,
			PxStep:        cfg.Book.PxStep,
			Metrics:       metrics,
		}
		if _, err := manager.CreateBook(instr, opts); err != nil {
			logger.Fatal().Err(err).Str("instr", instr).Msg("Failed to create book")
		}
		if err := manager.Subscribe(instr, "kafka-events", core.EffectL2); err != nil {
			logger.Fatal().Err(err).Str("instr", instr).Msg("Failed to subscribe event sender")
		}
		if err := manager.RestoreSnapshot(ctx, instr); err != nil {
			if errors.Is(err, backend.ErrSnapshotNotFound) {
				logger.Info().Str("instr", instr).Msg("No stored snapshot, waiting for feed")
			} else {
				logger.Warn().Err(err).Str("instr", instr).Msg("Snapshot restore failed")
			}
		} else {
			logger.Info().Str("instr", instr).Msg("Book restored from snapshot")
		}
	}

	var wg sync.WaitGroup

	// Periodic snapshot writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.RunSnapshots(ctx, cfg.Book.SnapshotInterval, 0)
	}()

	// Feed consumer drives the books
	consumer := kafka.NewFeedConsumer(cfg.Kafka.BrokerAddr, cfg.Kafka.FeedTopic, cfg.Kafka.ConsumerGroup, logger)
	defer consumer.Close()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx, func(upd *messaging.FeedUpdate) error {
			return manager.Apply(upd)
		}); err != nil {
			logger.Error().Err(err).Msg("Feed consumer stopped")
			stop()
		}
	}()

	logger.Info().
		Str("feed_topic", cfg.Kafka.FeedTopic).
		Str("event_topic", cfg.Kafka.EventTopic).
		Int("books", len(instruments)).
		Msg("feedd running")

	<-ctx.Done()
	logger.Info().Msg("Received signal, shutting down")

	wg.Wait()

	// Final snapshot pass before exit
	flushCtx := context.Background()
	for _, info := range manager.ListBooks() {
		if err := manager.SaveSnapshot(flushCtx, info.Instrument, 0); err != nil {
			logger.Error().Err(err).Str("instr", info.Instrument).Msg("Final snapshot failed")
		}
	}

	logger.Info().Msg("Shutdown complete")
}
