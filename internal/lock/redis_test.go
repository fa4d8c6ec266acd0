package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// Needs a live Redis: REDIS_ADDR=localhost:6379 go test ./internal/lock
func TestRedisLock(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	a, err := NewRedisLock(addr, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewRedisLock(addr, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx := context.Background()
	key := "test-" + t.Name()

	lease, err := a.Lock(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Lock(ctx, key); !errors.Is(err, ErrLocked) {
		t.Fatalf("second lock: %v, want ErrLocked", err)
	}
	if err := lease.Unlock(ctx); err != nil {
		t.Fatal(err)
	}

	lease, err = b.Lock(ctx, key)
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	_ = lease.Unlock(ctx)
}

func TestNewRedisLockUnreachable(t *testing.T) {
	if _, err := NewRedisLock("127.0.0.1:1", time.Second); err == nil {
		t.Fatal("want error for unreachable redis")
	}
}
