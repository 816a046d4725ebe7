// Package renderer defines the contract with the map rendering engine.
// The registry and the layer lifecycle manager are the only components
// that mutate renderer state.
package renderer

import "github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"

// SourceSpec describes a tiled vector source to register.
type SourceSpec struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SourceDataEvent reports source loading progress. Loaded is true once
// the renderer has fetched enough of the archive to serve tiles.
type SourceDataEvent struct {
	SourceID string
	Loaded   bool
	Err      error
}

// Renderer is the rendering-engine surface the core consumes. Event
// delivery may be synchronous: an implementation is allowed to invoke
// source-data subscribers from inside AddSource, so callers must arm
// their subscriptions before registering.
type Renderer interface {
	AddSource(id string, spec SourceSpec) error
	RemoveSource(id string) error
	HasSource(id string) bool

	AddLayer(layer FillLayer) error
	RemoveLayer(id string) error
	HasLayer(id string) bool

	SetLayoutProperty(layerID, name string, value any) error
	SetPaintProperty(layerID, name string, value any) error

	// OnSourceData subscribes to source-data events; the returned
	// function unsubscribes.
	OnSourceData(fn func(SourceDataEvent)) (unsubscribe func())

	// FlyTo pans the view. Outside the core contract, consumed by the
	// app layer when the current location changes.
	FlyTo(center model.Location, zoom float64)
}
