// Package registry registers tiled sources with the renderer exactly
// once per key and waits for them to finish loading.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/archive"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/observability"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

// ErrSourceLoadTimeout reports that a source did not confirm loading
// within the window. The source stays registered; callers proceed
// without layers for this key instead of retrying.
var ErrSourceLoadTimeout = errors.New("source load timeout")

const DefaultTimeout = 10 * time.Second

type Registry struct {
	r       renderer.Renderer
	timeout time.Duration
	log     *slog.Logger
}

func New(r renderer.Renderer, timeout time.Duration, log *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{r: r, timeout: timeout, log: log}
}

// EnsureSource makes sure sourceKey is registered and loaded. Already
// registered keys return immediately; registration is at-most-once per
// key because the renderer's source set is the single source of truth.
//
// The loaded event may arrive synchronously from inside AddSource, so
// the waiter is armed first.
func (g *Registry) EnsureSource(ctx context.Context, sourceKey string, ref archive.Ref) error {
	if g.r.HasSource(sourceKey) {
		observability.ObserveSourceRegistration("reused", 0)
		return nil
	}

	loaded := make(chan error, 1)
	unsub := g.r.OnSourceData(func(ev renderer.SourceDataEvent) {
		if ev.SourceID != sourceKey {
			return
		}
		var err error
		if !ev.Loaded {
			err = ev.Err
			if err == nil {
				err = fmt.Errorf("source %q reported not loaded", sourceKey)
			}
		}
		select {
		case loaded <- err:
		default:
		}
	})
	defer unsub()

	start := time.Now()
	if err := g.r.AddSource(sourceKey, renderer.SourceSpec{Type: "vector", URL: ref.URL}); err != nil {
		// Lost a race with a concurrent registration for the same key;
		// treat it like the fast path.
		if g.r.HasSource(sourceKey) {
			observability.ObserveSourceRegistration("reused", 0)
			return nil
		}
		observability.ObserveSourceRegistration("error", 0)
		return fmt.Errorf("add source %q: %w", sourceKey, err)
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case err := <-loaded:
		if err != nil {
			observability.ObserveSourceRegistration("failed", 0)
			g.log.Warn("source failed to load", "source", sourceKey, "archive", ref.Name, "err", err)
			return fmt.Errorf("source %q: %w", sourceKey, err)
		}
		observability.ObserveSourceRegistration("loaded", time.Since(start).Seconds())
		g.log.Debug("source loaded", "source", sourceKey, "archive", ref.Name,
			"dur", time.Since(start).String())
		return nil
	case <-timer.C:
		// Not rolled back: the renderer keeps the source and a late
		// loaded event makes the next EnsureSource a no-op.
		observability.ObserveSourceRegistration("timeout", 0)
		g.log.Warn("source load timed out", "source", sourceKey, "archive", ref.Name,
			"timeout", g.timeout.String())
		return fmt.Errorf("source %q: %w", sourceKey, ErrSourceLoadTimeout)
	case <-ctx.Done():
		observability.ObserveSourceRegistration("canceled", 0)
		return fmt.Errorf("source %q: %w", sourceKey, ctx.Err())
	}
}
