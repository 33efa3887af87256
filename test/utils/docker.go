// Package testutil starts throwaway containers for integration tests
// that need a real Redis. Kafka tests run against an externally managed
// broker instead (see pkg/testutil), its container startup is too slow
// to pay per test run.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// DockerContainer is one container started for a test.
type DockerContainer struct {
	ID        string
	Name      string
	HostPort  string
	StartedAt time.Time
}

// Addr returns the host address the container's service listens on.
func (c *DockerContainer) Addr() string {
	return "localhost:" + c.HostPort
}

// Stop removes the container. Containers run with --rm so a force
// removal is all the cleanup needed.
func (c *DockerContainer) Stop(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "docker", "rm", "-f", c.ID)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to remove container %s: %w, output: %s", c.Name, err, output)
	}
	return nil
}

// StartRedisContainer starts a disposable Redis on port 6380 and waits
// until it answers pings.
func StartRedisContainer(ctx context.Context) (*DockerContainer, error) {
	containerName := fmt.Sprintf("bookcore-redis-test-%d", time.Now().Unix())
	hostPort := "6380"

	cmd := exec.CommandContext(ctx, "docker", "run", "--rm", "-d",
		"--name", containerName,
		"-p", hostPort+":6379",
		"redis:alpine")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to start Redis container: %w, output: %s", err, output)
	}

	container := &DockerContainer{
		ID:        strings.TrimSpace(string(output)),
		Name:      containerName,
		HostPort:  hostPort,
		StartedAt: time.Now(),
	}

	client := redis.NewClient(&redis.Options{Addr: container.Addr()})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for {
		select {
		case <-pingCtx.Done():
			_ = container.Stop(ctx)
			return nil, fmt.Errorf("timed out waiting for Redis to be ready")
		default:
			if err := client.Ping(pingCtx).Err(); err == nil {
				return container, nil
			}
			time.Sleep(500 * time.Millisecond)
		}
	}
}
