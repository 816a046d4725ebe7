// Package manager is the facade the app layer drives: it owns the
// resolver, source registry, layer lifecycle and result cache for one
// map session. No error escapes a public operation; failures become nil
// results plus a logged diagnostic.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/archive"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/isocache"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/isokeys"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/layers"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/loadevents"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/logger"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/quantize"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/registry"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

const travelMode = "walk"

func withCategory(ctx context.Context, cat model.Category) context.Context {
	return logger.WithCategory(ctx, cat.String())
}

type Config struct {
	Bands             []model.Band
	SourceLoadTimeout time.Duration
	DefaultZoom       float64
}

type Option func(*Manager)

// WithEvents attaches a load-outcome sink (e.g. the Kafka publisher).
func WithEvents(s loadevents.Sink) Option {
	return func(m *Manager) { m.events = s }
}

type Manager struct {
	log      *slog.Logger
	r        renderer.Renderer
	resolver *archive.Resolver
	quant    quantize.Quantizer
	reg      *registry.Registry
	layers   *layers.Manager
	cache    *isocache.Cache
	events   loadevents.Sink
	zoom     float64

	mu      sync.Mutex
	current *model.Location
}

func New(cfg Config, r renderer.Renderer, resolver *archive.Resolver, quant quantize.Quantizer, store isocache.Store, log *slog.Logger, opts ...Option) *Manager {
	if len(cfg.Bands) == 0 {
		cfg.Bands = model.DefaultBands()
	}
	if cfg.DefaultZoom <= 0 {
		cfg.DefaultZoom = 13
	}
	m := &Manager{
		log:      log,
		r:        r,
		resolver: resolver,
		quant:    quant,
		reg:      registry.New(r, cfg.SourceLoadTimeout, log),
		layers:   layers.New(r, cfg.Bands, log),
		cache:    isocache.New(store, log),
		events:   loadevents.NopSink{},
		zoom:     cfg.DefaultZoom,
	}
	for _, f := range opts {
		f(m)
	}
	return m
}

func (m *Manager) Bands() []model.Band { return m.layers.Bands() }

// SetCurrentLocation records the session's location and pans the view.
func (m *Manager) SetCurrentLocation(loc model.Location) {
	m.mu.Lock()
	m.current = &loc
	m.mu.Unlock()
	m.r.FlyTo(loc, m.zoom)
}

func (m *Manager) CurrentLocation() (model.Location, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return model.Location{}, false
	}
	return *m.current, true
}

// LoadIsochrones resolves, registers and memoizes one category at one
// location. A nil result means the load failed (typically a source load
// timeout); the cache holds no entry, so a later call retries.
func (m *Manager) LoadIsochrones(ctx context.Context, loc model.Location, cat model.Category) *model.ResultDescriptor {
	start := time.Now()
	ctx = withCategory(ctx, cat)

	loaded := false
	desc, err := m.cache.GetOrLoad(ctx, cat, loc, func(ctx context.Context) (model.ResultDescriptor, error) {
		loaded = true
		ref := m.resolver.Resolve(cat, loc)
		key := isokeys.SourceKey(cat, loc, m.quant)
		if err := m.reg.EnsureSource(ctx, key, ref); err != nil {
			return model.ResultDescriptor{}, err
		}
		return model.ResultDescriptor{
			Category:    cat,
			Location:    loc,
			Bands:       m.layers.Bands(),
			Features:    []model.IsochroneFeature{},
			SourceKey:   key,
			SourceLayer: ref.SourceLayer(),
			TravelMode:  travelMode,
		}, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, registry.ErrSourceLoadTimeout) {
			outcome = "timeout"
		}
		m.events.Publish(loadevents.Event{
			Category: cat.String(), Lat: loc.Lat, Lng: loc.Lng,
			Outcome: outcome, DurMS: time.Since(start).Milliseconds(),
		})
		m.log.Warn("isochrone load failed", "category", cat.String(),
			"location", loc.String(), "err", err)
		return nil
	}

	outcome := "hit"
	if loaded {
		outcome = "miss"
	}
	m.events.Publish(loadevents.Event{
		Category: cat.String(), Lat: loc.Lat, Lng: loc.Lng,
		Outcome: outcome, DurMS: time.Since(start).Milliseconds(),
	})
	return &desc
}

// LoadAll loads every category concurrently. Categories fail
// independently; a failed load yields a nil entry in the result map and
// never cancels its siblings.
func (m *Manager) LoadAll(ctx context.Context, loc model.Location, cats []model.Category) map[model.Category]*model.ResultDescriptor {
	out := make(map[model.Category]*model.ResultDescriptor, len(cats))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, cat := range cats {
		wg.Add(1)
		go func(cat model.Category) {
			defer wg.Done()
			d := m.LoadIsochrones(ctx, loc, cat)
			mu.Lock()
			out[cat] = d
			mu.Unlock()
		}(cat)
	}
	wg.Wait()
	return out
}

// AddIsochroneLayers attaches the category's per-band layers to the
// descriptor's source. Nil descriptors (failed loads) are ignored.
func (m *Manager) AddIsochroneLayers(cat model.Category, desc *model.ResultDescriptor) {
	if desc == nil {
		return
	}
	m.layers.AddLayers(cat, desc.SourceKey, desc.SourceLayer)
}

func (m *Manager) RemoveIsochroneLayers(cat model.Category) {
	m.layers.RemoveLayers(cat)
}

func (m *Manager) ToggleIsochroneLayers(cat model.Category, visible bool) {
	m.layers.SetVisibility(cat, visible)
}

func (m *Manager) RestyleIsochroneLayers(cat model.Category) {
	m.layers.Restyle(cat)
}

// GetStatistics reports per-band counts for the category at the current
// location. Nil when the location is unset or the category was never
// loaded there; an empty load reports explicit zeros for every band.
func (m *Manager) GetStatistics(ctx context.Context, cat model.Category) *model.Stats {
	loc, ok := m.CurrentLocation()
	if !ok {
		return nil
	}
	desc, ok := m.cache.Get(ctx, cat, loc)
	if !ok {
		return nil
	}

	stats := &model.Stats{
		Total:   len(desc.Features),
		PerBand: make(map[model.Band]int, len(m.layers.Bands())),
	}
	for _, b := range m.layers.Bands() {
		stats.PerBand[b] = 0
	}
	for _, f := range desc.Features {
		if _, ok := stats.PerBand[f.Band]; ok {
			stats.PerBand[f.Band]++
		}
	}
	return stats
}

// ClearAll destroys the cache and every layer it created, together.
func (m *Manager) ClearAll(ctx context.Context) {
	ids, err := m.cache.InvalidateAll(ctx)
	if err != nil {
		m.log.Error("cache invalidation failed", "err", err)
		return
	}
	m.layers.RemoveIDs(ids)
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
	m.log.Info("session cleared", "layers_removed", len(ids))
}
