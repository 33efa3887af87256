// Package testutil gates integration tests on the external services they
// need. Tests skip, not fail, when a service is absent so the unit suite
// stays runnable on a bare machine.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
)

// Default addresses used by the docker-compose test stack.
const (
	DefaultRedisAddr = "localhost:6379"
	DefaultKafkaAddr = "localhost:9092"
)

const probeTimeout = 2 * time.Second

// SkipIfRedisUnavailable skips the test unless Redis answers a ping at addr.
func SkipIfRedisUnavailable(t *testing.T, addr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
}

// SkipIfKafkaUnavailable skips the test unless a Kafka broker at addr
// answers a metadata request.
func SkipIfKafkaUnavailable(t *testing.T, addr string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.Skipf("kafka not available at %s: %v", addr, err)
		return
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		t.Skipf("kafka at %s not answering metadata: %v", addr, err)
	}
}

// SkipIfDependenciesUnavailable skips the test unless both Redis and
// Kafka are reachable.
func SkipIfDependenciesUnavailable(t *testing.T, redisAddr, kafkaAddr string) {
	t.Helper()
	SkipIfRedisUnavailable(t, redisAddr)
	SkipIfKafkaUnavailable(t, kafkaAddr)
}
