package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestRedisResetTokenStoreSingleUse(t *testing.T) {
	t.Parallel()

	_, rdb := newMiniredis(t)
	store := NewRedisResetTokenStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "abc", []byte(`{"scope":"general"}`), time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	raw, err := store.GetAndDelete(ctx, "abc")
	if err != nil {
		t.Fatalf("get and delete failed: %v", err)
	}
	if string(raw) != `{"scope":"general"}` {
		t.Fatalf("unexpected payload %s", raw)
	}
	if _, err := store.GetAndDelete(ctx, "abc"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second read, got %v", err)
	}
}

func TestRedisResetTokenStoreTTL(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredis(t)
	store := NewRedisResetTokenStore(rdb)
	ctx := context.Background()

	if err := store.Set(ctx, "ttl", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if ttl := mr.TTL(resetTokenKeyPrefix + "ttl"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := store.GetAndDelete(ctx, "ttl"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}

func TestRedisResetTokenStoreUnavailable(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredis(t)
	store := NewRedisResetTokenStore(rdb)
	mr.Close()

	if err := store.Set(context.Background(), "k", []byte("v"), time.Minute); !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRedisLockoutStore(t *testing.T) {
	t.Parallel()

	_, rdb := newMiniredis(t)
	store := NewRedisLockoutStore(rdb)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 1; i < 3; i++ {
		st, err := store.RecordFailure(ctx, "login:general:jane@x.com", now, 3, 15*time.Minute)
		if err != nil {
			t.Fatalf("record failure %d: %v", i, err)
		}
		if st.FailedCount != i || st.LockedUntil != nil {
			t.Fatalf("unexpected state after %d failures: %+v", i, st)
		}
	}
	st, err := store.RecordFailure(ctx, "login:general:jane@x.com", now, 3, 15*time.Minute)
	if err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if st.LockedUntil == nil || !st.LockedUntil.After(now) {
		t.Fatalf("expected lock after threshold, got %+v", st)
	}

	got, err := store.Get(ctx, "login:general:jane@x.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.FailedCount != 3 || got.LockedUntil == nil {
		t.Fatalf("unexpected persisted state %+v", got)
	}

	if err := store.Clear(ctx, "login:general:jane@x.com"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, err = store.Get(ctx, "login:general:jane@x.com")
	if err != nil {
		t.Fatalf("get after clear failed: %v", err)
	}
	if got.FailedCount != 0 || got.LockedUntil != nil {
		t.Fatalf("expected empty state after clear, got %+v", got)
	}
}
