package layers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer/renderertest"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rendererSpec() renderer.SourceSpec {
	return renderer.SourceSpec{Type: "vector", URL: "http://tiles.local/a.pmtiles"}
}

func setup(t *testing.T) (*renderertest.Fake, *Manager) {
	t.Helper()
	f := renderertest.New()
	if err := f.AddSource("src", rendererSpec()); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	return f, New(f, []model.Band{5, 10, 15}, discard())
}

func TestAddLayers_PortlandScenario(t *testing.T) {
	f, m := setup(t)

	m.AddLayers(model.CategoryCoffee, "src", "coffee_Portland_ME_USA_isochrones")

	want := []string{"coffee-isochrone-5", "coffee-isochrone-10", "coffee-isochrone-15"}
	for _, id := range want {
		l, ok := f.Layer(id)
		if !ok {
			t.Fatalf("layer %q not present", id)
		}
		if l.Paint.FillOpacity != 0.6 {
			t.Fatalf("layer %q fill-opacity = %v, want 0.6", id, l.Paint.FillOpacity)
		}
		if l.Paint.FillColor != "#92400e" {
			t.Fatalf("layer %q fill-color = %q", id, l.Paint.FillColor)
		}
		if l.SourceLayer != "coffee_Portland_ME_USA_isochrones" {
			t.Fatalf("layer %q source-layer = %q", id, l.SourceLayer)
		}
	}
	if got := len(f.LayerIDs()); got != 3 {
		t.Fatalf("active layer count = %d, want 3", got)
	}
}

func TestAddLayers_AlreadyPresentIsNoOp(t *testing.T) {
	f, m := setup(t)
	m.AddLayers(model.CategoryCoffee, "src", "lyr")
	m.AddLayers(model.CategoryCoffee, "src", "lyr")
	if got := len(f.LayerIDs()); got != 3 {
		t.Fatalf("repeat add changed layer count to %d", got)
	}
}

func TestAddRemove_RoundTrip(t *testing.T) {
	f, m := setup(t)
	before := len(f.LayerIDs())
	m.AddLayers(model.CategoryBar, "src", "lyr")
	m.RemoveLayers(model.CategoryBar)
	if got := len(f.LayerIDs()); got != before {
		t.Fatalf("round trip left %d layers, want %d", got, before)
	}
	// removing again is a no-op
	m.RemoveLayers(model.CategoryBar)
}

func TestRemoveLayers_LeavesOtherCategoriesAlone(t *testing.T) {
	_, m := setup(t)
	m.AddLayers(model.CategoryCoffee, "src", "lyr")
	m.AddLayers(model.CategoryBar, "src", "lyr")
	m.AddLayers(model.CategoryGrocery, "src", "lyr")

	m.RemoveLayers(model.CategoryGrocery)

	if ids := m.ActiveLayerIDs(model.CategoryGrocery); len(ids) != 0 {
		t.Fatalf("grocery layers remain: %v", ids)
	}
	if ids := m.ActiveLayerIDs(model.CategoryCoffee); len(ids) != 3 {
		t.Fatalf("coffee layers disturbed: %v", ids)
	}
	if ids := m.ActiveLayerIDs(model.CategoryBar); len(ids) != 3 {
		t.Fatalf("bar layers disturbed: %v", ids)
	}
}

func TestSetVisibility_PreservesLayerIdentity(t *testing.T) {
	f, m := setup(t)
	m.AddLayers(model.CategoryCoffee, "src", "lyr")

	m.SetVisibility(model.CategoryCoffee, false)
	l, ok := f.Layer("coffee-isochrone-5")
	if !ok {
		t.Fatal("hiding must not remove the layer")
	}
	if l.Layout.Visibility != "none" {
		t.Fatalf("visibility = %q, want none", l.Layout.Visibility)
	}
	if l.Filter == nil {
		t.Fatal("hidden layer lost its filter state")
	}

	m.SetVisibility(model.CategoryCoffee, true)
	l, _ = f.Layer("coffee-isochrone-5")
	if l.Layout.Visibility != "visible" {
		t.Fatalf("visibility = %q, want visible", l.Layout.Visibility)
	}
	if f.AddSourceCalls != 1 {
		t.Fatal("toggling visibility must not touch the source")
	}
}

func TestAddLayers_PartialFailureContinues(t *testing.T) {
	f := renderertest.New()
	_ = f.AddSource("src", rendererSpec())
	f.FailAddLayer = map[string]bool{"coffee-isochrone-10": true}
	m := New(f, []model.Band{5, 10, 15}, discard())

	m.AddLayers(model.CategoryCoffee, "src", "lyr")

	if !f.HasLayer("coffee-isochrone-5") || !f.HasLayer("coffee-isochrone-15") {
		t.Fatal("failure on one band must not abort the others")
	}
	if f.HasLayer("coffee-isochrone-10") {
		t.Fatal("failed band should be absent")
	}

	// The failed band is independently retryable.
	f.FailAddLayer = nil
	m.AddLayers(model.CategoryCoffee, "src", "lyr")
	if !f.HasLayer("coffee-isochrone-10") {
		t.Fatal("retry did not recover the failed band")
	}
}

func TestUnknownCategory_FallsBackToDefaultStyle(t *testing.T) {
	f, m := setup(t)
	m.AddLayers(model.Category("tattoo"), "src", "lyr")
	l, ok := f.Layer("tattoo-isochrone-5")
	if !ok {
		t.Fatal("unknown category should still get layers")
	}
	def := model.StyleFor(model.FallbackCategory)
	if l.Paint.FillColor != def.FillColor {
		t.Fatalf("fallback fill = %q, want %q", l.Paint.FillColor, def.FillColor)
	}
}

func TestRestyle_ReappliesColors(t *testing.T) {
	f, m := setup(t)
	m.AddLayers(model.CategoryBar, "src", "lyr")
	_ = f.SetPaintProperty("bar-isochrone-5", "fill-color", "#000000")

	m.Restyle(model.CategoryBar)

	l, _ := f.Layer("bar-isochrone-5")
	if l.Paint.FillColor != "#dc2626" {
		t.Fatalf("restyle did not restore fill color: %q", l.Paint.FillColor)
	}
}
