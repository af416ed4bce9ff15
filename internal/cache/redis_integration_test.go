//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisInvalidator_FansOutBetweenInstances(t *testing.T) {
	addr := startRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localA, localB := NewViewCache(time.Minute), NewViewCache(time.Minute)
	a, err := NewRedisInvalidator(ctx, RedisConfig{Addr: addr}, localA)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisInvalidator(ctx, RedisConfig{Addr: addr}, localB)
	require.NoError(t, err)
	defer b.Close()

	go func() { _ = b.Subscribe(ctx) }()
	// wait for b's subscription to be registered
	require.Eventually(t, func() bool {
		n, err := a.client.PubSubNumSub(ctx, a.channel).Result()
		return err == nil && n[a.channel] > 0
	}, 10*time.Second, 50*time.Millisecond)

	localB.Set("/dashboard/invoices", "html /dashboard/invoices", Page{Status: 200})
	require.NoError(t, a.Invalidate(ctx, "/dashboard/invoices"))

	assert.Eventually(t, func() bool { return localB.Len() == 0 }, 5*time.Second, 20*time.Millisecond)
}
