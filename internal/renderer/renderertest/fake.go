// Package renderertest provides a scriptable Renderer double for unit
// tests.
package renderertest

import (
	"fmt"
	"sync"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

// Fake is an in-memory Renderer whose load behavior is scripted by the
// test. By default every AddSource emits a loaded event synchronously.
type Fake struct {
	mu      sync.Mutex
	sources map[string]renderer.SourceSpec
	layers  map[string]renderer.FillLayer
	subs    map[int]func(renderer.SourceDataEvent)
	nextSub int

	// ManualLoad suppresses automatic loaded events; the test drives
	// loading via EmitSourceData.
	ManualLoad bool
	// FailAddLayer makes AddLayer fail for the listed layer ids.
	FailAddLayer map[string]bool
	// FailRemoveLayer makes RemoveLayer fail for the listed layer ids.
	FailRemoveLayer map[string]bool

	AddSourceCalls int
	FlyToCalls     int
	LastCenter     model.Location
}

var _ renderer.Renderer = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		sources: make(map[string]renderer.SourceSpec),
		layers:  make(map[string]renderer.FillLayer),
		subs:    make(map[int]func(renderer.SourceDataEvent)),
	}
}

func (f *Fake) AddSource(id string, spec renderer.SourceSpec) error {
	f.mu.Lock()
	if _, ok := f.sources[id]; ok {
		f.mu.Unlock()
		return fmt.Errorf("source %q already registered", id)
	}
	f.sources[id] = spec
	f.AddSourceCalls++
	manual := f.ManualLoad
	f.mu.Unlock()

	if !manual {
		// synchronous delivery, like a renderer with a warm tile cache
		f.EmitSourceData(renderer.SourceDataEvent{SourceID: id, Loaded: true})
	}
	return nil
}

func (f *Fake) RemoveSource(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sources[id]; !ok {
		return fmt.Errorf("source %q not registered", id)
	}
	delete(f.sources, id)
	return nil
}

func (f *Fake) HasSource(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sources[id]
	return ok
}

func (f *Fake) AddLayer(layer renderer.FillLayer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAddLayer[layer.ID] {
		return fmt.Errorf("injected add failure for %q", layer.ID)
	}
	if _, ok := f.layers[layer.ID]; ok {
		return fmt.Errorf("layer %q already present", layer.ID)
	}
	f.layers[layer.ID] = layer
	return nil
}

func (f *Fake) RemoveLayer(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRemoveLayer[id] {
		return fmt.Errorf("injected remove failure for %q", id)
	}
	if _, ok := f.layers[id]; !ok {
		return fmt.Errorf("layer %q not present", id)
	}
	delete(f.layers, id)
	return nil
}

func (f *Fake) HasLayer(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.layers[id]
	return ok
}

func (f *Fake) SetLayoutProperty(layerID, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layers[layerID]
	if !ok {
		return fmt.Errorf("layer %q not present", layerID)
	}
	if name == "visibility" {
		l.Layout.Visibility, _ = value.(string)
		f.layers[layerID] = l
	}
	return nil
}

func (f *Fake) SetPaintProperty(layerID, name string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layers[layerID]
	if !ok {
		return fmt.Errorf("layer %q not present", layerID)
	}
	switch name {
	case "fill-color":
		l.Paint.FillColor, _ = value.(string)
	case "fill-outline-color":
		l.Paint.FillOutlineColor, _ = value.(string)
	case "fill-opacity":
		l.Paint.FillOpacity, _ = value.(float64)
	}
	f.layers[layerID] = l
	return nil
}

func (f *Fake) OnSourceData(fn func(renderer.SourceDataEvent)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *Fake) FlyTo(center model.Location, zoom float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FlyToCalls++
	f.LastCenter = center
}

// EmitSourceData delivers an event to all subscribers.
func (f *Fake) EmitSourceData(ev renderer.SourceDataEvent) {
	f.mu.Lock()
	fns := make([]func(renderer.SourceDataEvent), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Layer returns a copy of the stored layer for assertions.
func (f *Fake) Layer(id string) (renderer.FillLayer, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layers[id]
	return l, ok
}

// LayerIDs lists present layers.
func (f *Fake) LayerIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.layers))
	for id := range f.layers {
		out = append(out, id)
	}
	return out
}
