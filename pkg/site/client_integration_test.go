//go:build integration

package site

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	endpoint, err := redisC.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get container endpoint: %v", err)
	}
	return endpoint
}

// TestClient_RealRedisRoundTrip exercises MULTI/EXEC and pub/sub against a real server.
func TestClient_RealRedisRoundTrip(t *testing.T) {
	addr := setupRedis(t)
	ctx := context.Background()

	client, err := NewClient(&redis.Options{Addr: addr}, "integration")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(ctx))

	sub, err := client.SubscribeChanges(ctx)
	require.NoError(t, err)
	defer sub.Close()

	original := sampleState()
	require.NoError(t, client.SaveState(ctx, original))

	loaded, err := client.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.Templates, loaded.Templates)
	assert.Equal(t, original.Overrides, loaded.Overrides)

	require.NoError(t, client.PublishChange(ctx, ChangeEvent{Type: ChangeRemoved, Before: &original.Overrides[0]}))
	select {
	case ev := <-sub.Events():
		assert.Equal(t, original.Overrides[0].Key(), ev.Key())
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}
