package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kynahq/kyna/internal/log"
)

// setupRedis starts a disposable Redis container and returns a connected
// client.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("resolving redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("pinging redis: %v", err)
	}
	return client
}

func TestRedisStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	client := setupRedis(t)
	ctx := context.Background()

	t.Run("append and history", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: time.Hour, MaxTurns: 10}, log.NewNop())

		for i := 0; i < 3; i++ {
			turn := Turn{
				Question: fmt.Sprintf("question %d", i),
				Answer:   fmt.Sprintf("answer %d", i),
				AskedAt:  time.Now().UTC(),
			}
			if err := store.Append(ctx, "sess-order", turn); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		turns, err := store.History(ctx, "sess-order")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 3 {
			t.Fatalf("got %d turns, want 3", len(turns))
		}
		for i, turn := range turns {
			if want := fmt.Sprintf("question %d", i); turn.Question != want {
				t.Errorf("turn %d question = %q, want %q", i, turn.Question, want)
			}
		}
	})

	t.Run("window eviction", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: time.Hour, MaxTurns: 2}, log.NewNop())

		for _, q := range []string{"a", "b", "c"} {
			if err := store.Append(ctx, "sess-window", Turn{Question: q, Answer: "x"}); err != nil {
				t.Fatalf("Append() error = %v", err)
			}
		}

		turns, err := store.History(ctx, "sess-window")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 2 {
			t.Fatalf("got %d turns, want 2", len(turns))
		}
		if turns[0].Question != "b" || turns[1].Question != "c" {
			t.Errorf("retained %q and %q, want oldest evicted first", turns[0].Question, turns[1].Question)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: time.Second, MaxTurns: 10}, log.NewNop())

		if err := store.Append(ctx, "sess-ttl", Turn{Question: "q", Answer: "a"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		time.Sleep(2 * time.Second)

		turns, err := store.History(ctx, "sess-ttl")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("expired session returned %d turns, want 0", len(turns))
		}
	})

	t.Run("append refreshes ttl", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: 2 * time.Second, MaxTurns: 10}, log.NewNop())

		if err := store.Append(ctx, "sess-refresh", Turn{Question: "q1", Answer: "a1"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		time.Sleep(1200 * time.Millisecond)
		if err := store.Append(ctx, "sess-refresh", Turn{Question: "q2", Answer: "a2"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		time.Sleep(1200 * time.Millisecond)

		// 2.4s after the first append the session is only alive because
		// the second append reset the clock.
		turns, err := store.History(ctx, "sess-refresh")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 2 {
			t.Errorf("got %d turns, want 2", len(turns))
		}
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: time.Hour, MaxTurns: 10}, log.NewNop())

		if err := store.Append(ctx, "sess-clear", Turn{Question: "q", Answer: "a"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := store.Clear(ctx, "sess-clear"); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}

		turns, err := store.History(ctx, "sess-clear")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 0 {
			t.Errorf("cleared session returned %d turns", len(turns))
		}

		if err := store.Clear(ctx, "sess-clear"); err != nil {
			t.Errorf("Clear() of absent session error = %v, want nil", err)
		}
		if err := store.Clear(ctx, "never-existed"); err != nil {
			t.Errorf("Clear() of unknown session error = %v, want nil", err)
		}
	})

	t.Run("malformed element skipped", func(t *testing.T) {
		store := NewRedis(client, Options{TTL: time.Hour, MaxTurns: 10}, log.NewNop())

		if err := client.RPush(ctx, redisKeyPrefix+"sess-corrupt", "{not json").Err(); err != nil {
			t.Fatalf("seeding corrupt element: %v", err)
		}
		if err := store.Append(ctx, "sess-corrupt", Turn{Question: "q", Answer: "a"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}

		turns, err := store.History(ctx, "sess-corrupt")
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(turns) != 1 {
			t.Fatalf("got %d turns, want the valid one only", len(turns))
		}
		if turns[0].Question != "q" {
			t.Errorf("surviving turn question = %q, want q", turns[0].Question)
		}
	})
}
