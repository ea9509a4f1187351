package otp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisChallengeStore(t *testing.T) (*RedisChallengeStore, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisChallengeStore(client), srv
}

func TestRedisChallengeStoreRoundTrip(t *testing.T) {
	store, _ := newRedisChallengeStore(t)
	ctx := context.Background()

	ch := Challenge{
		IdentityID: "member-1",
		CodeHash:   HashCode("123456"),
		IssuedAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(10 * time.Minute),
	}
	if err := store.Put(ctx, &ch); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Find(ctx, "member-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got == nil || got.CodeHash != ch.CodeHash || got.Attempts != 0 {
		t.Fatalf("challenge = %+v", got)
	}

	if err := store.Delete(ctx, "member-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Find(ctx, "member-1")
	if err != nil {
		t.Fatalf("Find after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("challenge = %+v, want nil", got)
	}
}

func TestRedisChallengeStoreFailureCounter(t *testing.T) {
	store, _ := newRedisChallengeStore(t)
	ctx := context.Background()

	ch := Challenge{
		IdentityID: "member-1",
		CodeHash:   HashCode("123456"),
		IssuedAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(10 * time.Minute),
	}
	if err := store.Put(ctx, &ch); err != nil {
		t.Fatalf("Put: %v", err)
	}

	for want := 1; want <= 3; want++ {
		count, err := store.RecordFailure(ctx, "member-1")
		if err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		if count != want {
			t.Fatalf("count = %d, want %d", count, want)
		}
	}

	got, err := store.Find(ctx, "member-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", got.Attempts)
	}

	// Re-issuing resets the counter.
	if err := store.Put(ctx, &ch); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err = store.Find(ctx, "member-1")
	if err != nil {
		t.Fatalf("Find after reissue: %v", err)
	}
	if got.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after reissue", got.Attempts)
	}
}

func TestRedisChallengeStoreNoChallenge(t *testing.T) {
	store, _ := newRedisChallengeStore(t)

	if _, err := store.RecordFailure(context.Background(), "absent"); !errors.Is(err, ErrNoActiveCode) {
		t.Fatalf("RecordFailure = %v, want ErrNoActiveCode", err)
	}
}

func TestRedisChallengeStoreExpiry(t *testing.T) {
	store, srv := newRedisChallengeStore(t)
	ctx := context.Background()

	ch := Challenge{
		IdentityID: "member-1",
		CodeHash:   HashCode("123456"),
		IssuedAt:   time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Minute),
	}
	if err := store.Put(ctx, &ch); err != nil {
		t.Fatalf("Put: %v", err)
	}

	srv.FastForward(2 * time.Minute)

	got, err := store.Find(ctx, "member-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got != nil {
		t.Fatalf("challenge = %+v, want nil after TTL", got)
	}
}
