// Package layers manages the per-category, per-band isochrone layers
// attached to registered sources.
package layers

import (
	"log/slog"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/observability"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/isokeys"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

// FillOpacity matches the opacity the original map applied to every
// band.
const FillOpacity = 0.6

type Manager struct {
	r     renderer.Renderer
	bands []model.Band
	log   *slog.Logger
}

func New(r renderer.Renderer, bands []model.Band, log *slog.Logger) *Manager {
	if len(bands) == 0 {
		bands = model.DefaultBands()
	}
	return &Manager{r: r, bands: bands, log: log}
}

func (m *Manager) Bands() []model.Band { return m.bands }

// AddLayers creates one fill layer per configured band on sourceKey's
// source. A layer that already exists is left alone; a renderer failure
// on one band is logged and does not stop the remaining bands.
func (m *Manager) AddLayers(cat model.Category, sourceKey, sourceLayer string) {
	style := model.StyleFor(cat)
	for _, band := range m.bands {
		id := isokeys.LayerID(cat, band)
		if m.r.HasLayer(id) {
			continue
		}
		layer := renderer.FillLayer{
			ID:          id,
			Type:        "fill",
			Source:      sourceKey,
			SourceLayer: sourceLayer,
			Filter:      renderer.BandFilter(int(band)),
			Layout:      renderer.FillLayout{Visibility: "visible"},
			Paint: renderer.FillPaint{
				FillColor:        style.FillColor,
				FillOpacity:      FillOpacity,
				FillOutlineColor: style.OutlineColor,
			},
		}
		err := m.r.AddLayer(layer)
		observability.IncLayerOp("add", err)
		if err != nil {
			m.log.Warn("add layer failed", "layer", id, "source", sourceKey, "err", err)
		}
	}
}

// RemoveLayers removes every active layer for the category. Absent
// layers are skipped; failures are logged per band.
func (m *Manager) RemoveLayers(cat model.Category) {
	for _, band := range m.bands {
		id := isokeys.LayerID(cat, band)
		if !m.r.HasLayer(id) {
			continue
		}
		err := m.r.RemoveLayer(id)
		observability.IncLayerOp("remove", err)
		if err != nil {
			m.log.Warn("remove layer failed", "layer", id, "err", err)
		}
	}
}

// SetVisibility hides or shows the category's layers without destroying
// them. Hidden layers keep their style and filter state.
func (m *Manager) SetVisibility(cat model.Category, visible bool) {
	v := "none"
	if visible {
		v = "visible"
	}
	for _, band := range m.bands {
		id := isokeys.LayerID(cat, band)
		if !m.r.HasLayer(id) {
			continue
		}
		err := m.r.SetLayoutProperty(id, "visibility", v)
		observability.IncLayerOp("visibility", err)
		if err != nil {
			m.log.Warn("set visibility failed", "layer", id, "err", err)
		}
	}
}

// Restyle re-applies the category's current colors to its active
// layers.
func (m *Manager) Restyle(cat model.Category) {
	style := model.StyleFor(cat)
	for _, band := range m.bands {
		id := isokeys.LayerID(cat, band)
		if !m.r.HasLayer(id) {
			continue
		}
		if err := m.r.SetPaintProperty(id, "fill-color", style.FillColor); err != nil {
			observability.IncLayerOp("restyle", err)
			m.log.Warn("restyle failed", "layer", id, "err", err)
			continue
		}
		err := m.r.SetPaintProperty(id, "fill-outline-color", style.OutlineColor)
		observability.IncLayerOp("restyle", err)
		if err != nil {
			m.log.Warn("restyle failed", "layer", id, "err", err)
		}
	}
}

// RemoveIDs removes specific layers by id. Used on full reset, where
// the ids to tear down come from the result cache rather than from the
// active category set.
func (m *Manager) RemoveIDs(ids []string) {
	for _, id := range ids {
		if !m.r.HasLayer(id) {
			continue
		}
		err := m.r.RemoveLayer(id)
		observability.IncLayerOp("remove", err)
		if err != nil {
			m.log.Warn("remove layer failed", "layer", id, "err", err)
		}
	}
}

// ActiveLayerIDs lists the category's layers currently present on the
// renderer.
func (m *Manager) ActiveLayerIDs(cat model.Category) []string {
	var out []string
	for _, band := range m.bands {
		id := isokeys.LayerID(cat, band)
		if m.r.HasLayer(id) {
			out = append(out, id)
		}
	}
	return out
}
