// Package styledoc is an in-process renderer implementation that
// maintains a MapLibre-compatible style document. Sources point at
// tiled archives; registering one triggers an asynchronous probe of the
// archive header, and subscribers receive a source-data event once the
// probe settles.
package styledoc

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/httpclient"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

const probeCacheDefault = 128

// archive header magic; kept in sync with the tile packaging step
var pmtilesMagic = []byte("PMTiles")

type Option func(*Doc)

func WithProbeClient(c *http.Client) Option {
	return func(d *Doc) { d.http = c }
}

func WithProbeCacheSize(n int) Option {
	return func(d *Doc) { d.probeCacheSize = n }
}

type Doc struct {
	log  *slog.Logger
	http *http.Client

	probeCacheSize int
	probes         *lru.Cache[string, error]

	mu       sync.Mutex
	sources  map[string]renderer.VectorSource
	layers   map[string]*renderer.FillLayer
	order    []string
	subs     map[int]func(renderer.SourceDataEvent)
	nextSub  int
	center   model.Location
	zoom     float64
}

var _ renderer.Renderer = (*Doc)(nil)

func New(log *slog.Logger, opts ...Option) *Doc {
	d := &Doc{
		log:            log,
		probeCacheSize: probeCacheDefault,
		sources:        make(map[string]renderer.VectorSource),
		layers:         make(map[string]*renderer.FillLayer),
		subs:           make(map[int]func(renderer.SourceDataEvent)),
	}
	for _, f := range opts {
		f(d)
	}
	if d.http == nil {
		d.http = httpclient.NewOutbound(0)
	}
	c, err := lru.New[string, error](d.probeCacheSize)
	if err != nil {
		// only fails on non-positive size
		c, _ = lru.New[string, error](probeCacheDefault)
	}
	d.probes = c
	return d
}

func (d *Doc) AddSource(id string, spec renderer.SourceSpec) error {
	d.mu.Lock()
	if _, ok := d.sources[id]; ok {
		d.mu.Unlock()
		return fmt.Errorf("source %q already registered", id)
	}
	d.sources[id] = renderer.VectorSource{Type: spec.Type, URL: spec.URL}
	probeErr, probed := d.probes.Get(spec.URL)
	d.mu.Unlock()

	if probed {
		// Known archive: the loaded event fires synchronously, from
		// inside this call. Subscribers must already be armed.
		d.emit(renderer.SourceDataEvent{SourceID: id, Loaded: probeErr == nil, Err: probeErr})
		return nil
	}

	go func() {
		err := d.probe(spec.URL)
		d.probes.Add(spec.URL, err)
		if err != nil {
			d.log.Warn("archive probe failed", "source", id, "url", spec.URL, "err", err)
		}
		d.emit(renderer.SourceDataEvent{SourceID: id, Loaded: err == nil, Err: err})
	}()
	return nil
}

func (d *Doc) RemoveSource(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[id]; !ok {
		return fmt.Errorf("source %q not registered", id)
	}
	for _, l := range d.layers {
		if l.Source == id {
			return fmt.Errorf("source %q still has layer %q attached", id, l.ID)
		}
	}
	delete(d.sources, id)
	return nil
}

func (d *Doc) HasSource(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sources[id]
	return ok
}

func (d *Doc) AddLayer(layer renderer.FillLayer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layers[layer.ID]; ok {
		return fmt.Errorf("layer %q already present", layer.ID)
	}
	if _, ok := d.sources[layer.Source]; !ok {
		return fmt.Errorf("layer %q references unknown source %q", layer.ID, layer.Source)
	}
	cp := layer
	d.layers[layer.ID] = &cp
	d.order = append(d.order, layer.ID)
	return nil
}

func (d *Doc) RemoveLayer(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.layers[id]; !ok {
		return fmt.Errorf("layer %q not present", id)
	}
	delete(d.layers, id)
	for i, lid := range d.order {
		if lid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Doc) HasLayer(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.layers[id]
	return ok
}

func (d *Doc) SetLayoutProperty(layerID, name string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[layerID]
	if !ok {
		return fmt.Errorf("layer %q not present", layerID)
	}
	switch name {
	case "visibility":
		s, ok := value.(string)
		if !ok || (s != "visible" && s != "none") {
			return fmt.Errorf("visibility wants \"visible\" or \"none\", got %v", value)
		}
		l.Layout.Visibility = s
	default:
		return fmt.Errorf("unknown layout property %q", name)
	}
	return nil
}

func (d *Doc) SetPaintProperty(layerID, name string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.layers[layerID]
	if !ok {
		return fmt.Errorf("layer %q not present", layerID)
	}
	switch name {
	case "fill-color":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("fill-color wants a string, got %T", value)
		}
		l.Paint.FillColor = s
	case "fill-outline-color":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("fill-outline-color wants a string, got %T", value)
		}
		l.Paint.FillOutlineColor = s
	case "fill-opacity":
		f, ok := value.(float64)
		if !ok {
			return fmt.Errorf("fill-opacity wants a float64, got %T", value)
		}
		l.Paint.FillOpacity = f
	default:
		return fmt.Errorf("unknown paint property %q", name)
	}
	return nil
}

func (d *Doc) OnSourceData(fn func(renderer.SourceDataEvent)) func() {
	d.mu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}
}

func (d *Doc) FlyTo(center model.Location, zoom float64) {
	d.mu.Lock()
	d.center = center
	d.zoom = zoom
	d.mu.Unlock()
}

func (d *Doc) Center() (model.Location, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.center, d.zoom
}

// Snapshot returns the current style document. Layers keep insertion
// order so time bands stack oldest-first.
func (d *Doc) Snapshot() renderer.StyleDocument {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc := renderer.StyleDocument{
		Version: 8,
		Name:    "coffee-milk-beer",
		Sources: make(map[string]renderer.VectorSource, len(d.sources)),
		Layers:  make([]renderer.FillLayer, 0, len(d.order)),
	}
	for id, s := range d.sources {
		doc.Sources[id] = s
	}
	for _, id := range d.order {
		doc.Layers = append(doc.Layers, *d.layers[id])
	}
	return doc
}

// emit calls subscribers without holding the lock; a subscriber may
// re-enter the renderer from its callback.
func (d *Doc) emit(ev renderer.SourceDataEvent) {
	d.mu.Lock()
	fns := make([]func(renderer.SourceDataEvent), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// probe reads the archive header with a ranged request and checks the
// magic bytes.
func (d *Doc) probe(url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-6")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			d.log.Warn("close probe body", "err", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	head := make([]byte, len(pmtilesMagic))
	if _, err := io.ReadFull(resp.Body, head); err != nil {
		return fmt.Errorf("probe %s: read header: %w", url, err)
	}
	if string(head) != string(pmtilesMagic) {
		return fmt.Errorf("probe %s: not a tiled archive", url)
	}
	return nil
}
