package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/archive"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer/renderertest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var ref = archive.Ref{Name: "coffee_Portland_ME_USA_isochrones", URL: "http://tiles.local/coffee.pmtiles"}

func TestEnsureSource_SynchronousLoadedEvent(t *testing.T) {
	f := renderertest.New() // emits loaded from inside AddSource
	g := New(f, time.Second, discard())

	if err := g.EnsureSource(context.Background(), "k1", ref); err != nil {
		t.Fatalf("EnsureSource: %v", err)
	}
	if f.AddSourceCalls != 1 {
		t.Fatalf("AddSource called %d times, want 1", f.AddSourceCalls)
	}
}

func TestEnsureSource_IdempotentPerKey(t *testing.T) {
	f := renderertest.New()
	g := New(f, time.Second, discard())

	for range 3 {
		if err := g.EnsureSource(context.Background(), "k1", ref); err != nil {
			t.Fatalf("EnsureSource: %v", err)
		}
	}
	if f.AddSourceCalls != 1 {
		t.Fatalf("AddSource called %d times, want 1", f.AddSourceCalls)
	}
}

func TestEnsureSource_AsyncLoad(t *testing.T) {
	f := renderertest.New()
	f.ManualLoad = true
	g := New(f, 2*time.Second, discard())

	done := make(chan error, 1)
	go func() { done <- g.EnsureSource(context.Background(), "k1", ref) }()

	// Let the registration land, then deliver the event.
	for !f.HasSource("k1") {
		time.Sleep(time.Millisecond)
	}
	f.EmitSourceData(renderer.SourceDataEvent{SourceID: "other", Loaded: true}) // ignored
	f.EmitSourceData(renderer.SourceDataEvent{SourceID: "k1", Loaded: true})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("EnsureSource: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureSource did not return after loaded event")
	}
}

func TestEnsureSource_TimeoutLeavesSourceRegistered(t *testing.T) {
	f := renderertest.New()
	f.ManualLoad = true
	g := New(f, 50*time.Millisecond, discard())

	err := g.EnsureSource(context.Background(), "slow", ref)
	if !errors.Is(err, ErrSourceLoadTimeout) {
		t.Fatalf("want ErrSourceLoadTimeout, got %v", err)
	}
	if !f.HasSource("slow") {
		t.Fatal("timeout must not roll back the registration")
	}

	// A late loaded event turns the next call into a fast no-op.
	f.EmitSourceData(renderer.SourceDataEvent{SourceID: "slow", Loaded: true})
	if err := g.EnsureSource(context.Background(), "slow", ref); err != nil {
		t.Fatalf("second EnsureSource: %v", err)
	}
	if f.AddSourceCalls != 1 {
		t.Fatalf("AddSource called %d times, want 1", f.AddSourceCalls)
	}
}

func TestEnsureSource_FailedLoadReportsError(t *testing.T) {
	f := renderertest.New()
	f.ManualLoad = true
	g := New(f, time.Second, discard())

	done := make(chan error, 1)
	go func() { done <- g.EnsureSource(context.Background(), "bad", ref) }()
	for !f.HasSource("bad") {
		time.Sleep(time.Millisecond)
	}
	f.EmitSourceData(renderer.SourceDataEvent{SourceID: "bad", Loaded: false, Err: errors.New("404")})

	err := <-done
	if err == nil || errors.Is(err, ErrSourceLoadTimeout) {
		t.Fatalf("want load failure, got %v", err)
	}
}

func TestEnsureSource_ContextCancel(t *testing.T) {
	f := renderertest.New()
	f.ManualLoad = true
	g := New(f, time.Minute, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.EnsureSource(ctx, "k", ref) }()
	for !f.HasSource("k") {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("EnsureSource ignored context cancellation")
	}
}
