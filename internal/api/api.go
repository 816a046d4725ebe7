// Package api exposes the session manager to the map frontend.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/observability"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/manager"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/renderer"
)

// StyleSource serves the current style document, when the renderer can
// produce one (the in-process styledoc renderer can).
type StyleSource interface {
	Snapshot() renderer.StyleDocument
}

type API struct {
	log   *slog.Logger
	mgr   *manager.Manager
	style StyleSource
}

func New(log *slog.Logger, mgr *manager.Manager, style StyleSource) *API {
	return &API{log: log, mgr: mgr, style: style}
}

func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/location", a.instrument("/location", a.setLocation))
	r.Post("/isochrones/load", a.instrument("/isochrones/load", a.loadIsochrones))
	r.Post("/layers/{category}", a.instrument("/layers/{category}", a.addLayers))
	r.Delete("/layers/{category}", a.instrument("/layers/{category}", a.removeLayers))
	r.Post("/layers/{category}/visibility", a.instrument("/layers/{category}/visibility", a.setVisibility))
	r.Post("/layers/{category}/restyle", a.instrument("/layers/{category}/restyle", a.restyle))
	r.Get("/statistics/{category}", a.instrument("/statistics/{category}", a.statistics))
	r.Get("/categories", a.instrument("/categories", a.categories))
	r.Post("/clear", a.instrument("/clear", a.clear))
	if a.style != nil {
		r.Get("/style.json", a.instrument("/style.json", a.styleJSON))
	}
	return r
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (a *API) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type locationBody struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (b locationBody) valid() bool {
	return b.Lat >= -90 && b.Lat <= 90 && b.Lng >= -180 && b.Lng <= 180
}

func (a *API) setLocation(w http.ResponseWriter, r *http.Request) {
	var body locationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.valid() {
		http.Error(w, "invalid location", http.StatusBadRequest)
		return
	}
	a.mgr.SetCurrentLocation(model.Location{Lat: body.Lat, Lng: body.Lng})
	w.WriteHeader(http.StatusNoContent)
}

type loadBody struct {
	Lat        *float64 `json:"lat,omitempty"`
	Lng        *float64 `json:"lng,omitempty"`
	Categories []string `json:"categories"`
}

// loadIsochrones loads every requested category concurrently. Failed
// categories come back null; the request as a whole never fails because
// one category did.
func (a *API) loadIsochrones(w http.ResponseWriter, r *http.Request) {
	var body loadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var loc model.Location
	switch {
	case body.Lat != nil && body.Lng != nil:
		loc = model.Location{Lat: *body.Lat, Lng: *body.Lng}
		a.mgr.SetCurrentLocation(loc)
	default:
		cur, ok := a.mgr.CurrentLocation()
		if !ok {
			http.Error(w, "no location set", http.StatusBadRequest)
			return
		}
		loc = cur
	}

	cats := make([]model.Category, 0, len(body.Categories))
	for _, c := range body.Categories {
		cats = append(cats, model.Category(c))
	}
	if len(cats) == 0 {
		cats = model.Categories()
	}

	results := a.mgr.LoadAll(r.Context(), loc, cats)
	out := make(map[string]*model.ResultDescriptor, len(results))
	failed := 0
	for cat, d := range results {
		out[cat.String()] = d
		if d == nil {
			failed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": out,
		"failed":  failed,
	})
}

func (a *API) addLayers(w http.ResponseWriter, r *http.Request) {
	cat := model.Category(chi.URLParam(r, "category"))
	loc, ok := a.mgr.CurrentLocation()
	if !ok {
		http.Error(w, "no location set", http.StatusBadRequest)
		return
	}
	desc := a.mgr.LoadIsochrones(r.Context(), loc, cat)
	if desc == nil {
		http.Error(w, "isochrones unavailable for category", http.StatusBadGateway)
		return
	}
	a.mgr.AddIsochroneLayers(cat, desc)
	writeJSON(w, http.StatusOK, desc)
}

func (a *API) removeLayers(w http.ResponseWriter, r *http.Request) {
	a.mgr.RemoveIsochroneLayers(model.Category(chi.URLParam(r, "category")))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) setVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	a.mgr.ToggleIsochroneLayers(model.Category(chi.URLParam(r, "category")), body.Visible)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) restyle(w http.ResponseWriter, r *http.Request) {
	a.mgr.RestyleIsochroneLayers(model.Category(chi.URLParam(r, "category")))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) statistics(w http.ResponseWriter, r *http.Request) {
	stats := a.mgr.GetStatistics(r.Context(), model.Category(chi.URLParam(r, "category")))
	if stats == nil {
		http.Error(w, "no data for category at current location", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) categories(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string]model.CategoryStyle, len(model.Categories()))
	for _, c := range model.Categories() {
		out[c.String()] = model.StyleFor(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) clear(w http.ResponseWriter, r *http.Request) {
	a.mgr.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) styleJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.style.Snapshot())
}
