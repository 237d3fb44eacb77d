package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"

	"pulse/api/internal/interest"
	"pulse/api/internal/reconcile"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url", time.Minute, time.Hour); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestInterestRoundTripAndExpiry(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if _, ok, err := store.GetInterest(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	tallies := []interest.Tally{{TopicID: "a", Title: "Alpha", Subtopics: []string{}, More: 2, Less: 1, Total: 3, Net: 1}}
	if err := store.SetInterest(ctx, "s1", tallies); err != nil {
		t.Fatalf("SetInterest failed: %v", err)
	}
	got, ok, err := store.GetInterest(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(tallies, got); diff != "" {
		t.Fatalf("cached tallies mismatch (-want +got):\n%s", diff)
	}

	s.FastForward(2 * time.Minute)
	if _, ok, _ := store.GetInterest(ctx, "s1"); ok {
		t.Fatal("expected cached interest to expire")
	}
}

func TestInvalidateInterest(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	if err := store.SetInterest(ctx, "s1", []interest.Tally{{TopicID: "a"}}); err != nil {
		t.Fatalf("SetInterest failed: %v", err)
	}
	if err := store.InvalidateInterest(ctx, "s1"); err != nil {
		t.Fatalf("InvalidateInterest failed: %v", err)
	}
	if _, ok, _ := store.GetInterest(ctx, "s1"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestDraftStash(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()
	edits := []reconcile.Edit{{ID: "a", Title: "Alpha", Subtopics: []string{"why now"}}, {ID: "n1", Title: "New"}}

	if err := store.SaveDraft(ctx, "s1", edits); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}
	if ttl := s.TTL("pulse:draft:s1"); ttl != time.Hour {
		t.Fatalf("draft ttl = %v, want 1h", ttl)
	}
	got, ok, err := store.LoadDraft(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected draft, got ok=%v err=%v", ok, err)
	}
	if diff := cmp.Diff(edits, got); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}

	if err := store.ClearDraft(ctx, "s1"); err != nil {
		t.Fatalf("ClearDraft failed: %v", err)
	}
	if _, ok, _ := store.LoadDraft(ctx, "s1"); ok {
		t.Fatal("expected draft cleared")
	}
}

func TestCorruptEntryIsAnError(t *testing.T) {
	store, s := setupTestRedis(t)
	if err := s.Set("pulse:draft:s1", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := store.LoadDraft(context.Background(), "s1"); err == nil {
		t.Fatal("expected decode error")
	}
}
