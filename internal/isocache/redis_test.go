package isocache

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

func newRedisStore(t *testing.T, session string) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	s, err := NewRedisStore(context.Background(), mr.Addr(), session)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s := newRedisStore(t, "sess1")
	ctx := context.Background()

	want := descFor(model.CategoryCoffee, portland)
	if err := s.Set(ctx, "k1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Category != want.Category || got.SourceKey != want.SourceKey {
		t.Fatalf("descriptor mangled: %+v", got)
	}
	if got.Features == nil || len(got.Features) != 0 {
		t.Fatalf("empty feature placeholder not preserved: %+v", got.Features)
	}

	if _, ok, err := s.Get(ctx, "absent"); err != nil || ok {
		t.Fatalf("absent key: ok=%v err=%v", ok, err)
	}
}

func TestRedisStore_EntriesAndClear(t *testing.T) {
	s := newRedisStore(t, "sess1")
	ctx := context.Background()

	_ = s.Set(ctx, "k1", descFor(model.CategoryCoffee, portland))
	_ = s.Set(ctx, "k2", descFor(model.CategoryBar, portland))

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err = s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries after clear: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries remain after clear: %d", len(entries))
	}
}

func TestRedisStore_SessionsIsolated(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()

	a, err := NewRedisStore(ctx, mr.Addr(), "sessA")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer func() { _ = a.Close() }()
	b, err := NewRedisStore(ctx, mr.Addr(), "sessB")
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer func() { _ = b.Close() }()

	_ = a.Set(ctx, "k", descFor(model.CategoryCoffee, portland))
	_ = b.Set(ctx, "k", descFor(model.CategoryBar, portland))

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "k"); !ok {
		t.Fatal("clearing one session wiped another")
	}
}

func TestCacheOverRedis_GetOrLoad(t *testing.T) {
	s := newRedisStore(t, "sess1")
	c := New(s, discard())
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (model.ResultDescriptor, error) {
		calls++
		return descFor(model.CategoryGrocery, portland), nil
	}
	if _, err := c.GetOrLoad(ctx, model.CategoryGrocery, portland, loader); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if _, err := c.GetOrLoad(ctx, model.CategoryGrocery, portland, loader); err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loader invoked %d times, want 1", calls)
	}
}
