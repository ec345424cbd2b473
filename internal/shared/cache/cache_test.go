package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/radieske/matka-exchange/pkg/contracts/events"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: requires docker")
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
			Labels:       map[string]string{"test": "matka-cache", "test-name": t.Name()},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	addr, err := c.Endpoint(ctx, "")
	require.NoError(t, err)
	rdb, err := ConnectRedis(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestLocker_Acquire(t *testing.T) {
	rdb := setupRedis(t)
	l := NewLocker(rdb)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "settle:7:2026-10-18", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "settle:7:2026-10-18", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := l.Acquire(ctx, "settle:8:2026-10-18", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "settle:7:2026-10-18", time.Minute)
	require.NoError(t, err)
	again()
}

func TestLocker_ReleaseKeepsForeignToken(t *testing.T) {
	rdb := setupRedis(t)
	l := NewLocker(rdb)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k", 50*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	// o lock expirou e outro processo pegou
	require.NoError(t, rdb.Set(ctx, "lock:k", "someone-else", time.Minute).Err())
	release()

	v, err := rdb.Get(ctx, "lock:k").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", v)
}

func TestBookNotifier_Publish(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "book_updates")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewBookNotifier(rdb, "book_updates")
	require.NoError(t, n.NotifyBookChanged(ctx, events.BookChanged{
		MarketID: 7, Phase: "OPEN", BetType: "single", DrawDate: "2026-10-18", Reason: "bet_placed",
	}))

	select {
	case msg := <-sub.Channel():
		var got events.BookChanged
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, int64(7), got.MarketID)
		assert.Equal(t, "bet_placed", got.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("no message on book_updates")
	}
}
