package renderer

// MapLibre-style document fragments. Only the pieces the isochrone
// layers need; the base map style is referenced, not embedded.

type StyleDocument struct {
	Version int                     `json:"version"`
	Name    string                  `json:"name,omitempty"`
	Sources map[string]VectorSource `json:"sources"`
	Layers  []FillLayer             `json:"layers"`
}

type VectorSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type FillLayer struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Source      string     `json:"source"`
	SourceLayer string     `json:"source-layer"`
	Filter      []any      `json:"filter,omitempty"`
	Layout      FillLayout `json:"layout,omitempty"`
	Paint       FillPaint  `json:"paint"`
}

type FillLayout struct {
	Visibility string `json:"visibility,omitempty"`
}

type FillPaint struct {
	FillColor        string  `json:"fill-color"`
	FillOpacity      float64 `json:"fill-opacity"`
	FillOutlineColor string  `json:"fill-outline-color,omitempty"`
}

// BandFilter matches features whose recorded minute value equals the
// band, mirroring the `time` property the generation pipeline writes.
func BandFilter(minutes int) []any {
	return []any{"==", []any{"get", "time"}, minutes}
}
