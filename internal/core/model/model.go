// Package model holds the shared domain types: locations, POI
// categories, travel-time bands and loaded isochrone descriptors.
package model

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Location is a WGS84 point.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l Location) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

func (l Location) String() string {
	return fmt.Sprintf("%.6f,%.6f", l.Lat, l.Lng)
}

// Category identifies a POI type with a prebuilt isochrone archive.
type Category string

const (
	CategoryCoffee  Category = "coffee"
	CategoryBar     Category = "bar"
	CategoryGrocery Category = "grocery"

	// FallbackCategory supplies styling for categories without an
	// entry of their own.
	FallbackCategory = CategoryCoffee
)

func (c Category) String() string { return string(c) }

func Categories() []Category {
	return []Category{CategoryCoffee, CategoryBar, CategoryGrocery}
}

// Band is a travel-time threshold in minutes.
type Band int

func DefaultBands() []Band { return []Band{5, 10, 15} }

// CategoryStyle describes how a category's isochrones are drawn and
// which OSM tags its POIs were collected from.
type CategoryStyle struct {
	Name         string              `json:"name"`
	FillColor    string              `json:"fillColor"`
	OutlineColor string              `json:"outlineColor"`
	Tags         map[string][]string `json:"tags,omitempty"`
	FallbackTags map[string][]string `json:"fallbackTags,omitempty"`
}

var categoryStyles = map[Category]CategoryStyle{
	CategoryCoffee: {
		Name:         "Coffee Shops",
		FillColor:    "#92400e",
		OutlineColor: "#78350f",
		Tags:         map[string][]string{"amenity": {"cafe"}, "cuisine": {"coffee_shop"}},
		FallbackTags: map[string][]string{"amenity": {"cafe"}},
	},
	CategoryBar: {
		Name:         "Bars & Restaurants",
		FillColor:    "#dc2626",
		OutlineColor: "#991b1b",
		Tags:         map[string][]string{"amenity": {"bar", "restaurant", "pub"}},
		FallbackTags: map[string][]string{"amenity": {"restaurant"}},
	},
	CategoryGrocery: {
		Name:         "Grocery Stores",
		FillColor:    "#fbbf24",
		OutlineColor: "#b45309",
		Tags:         map[string][]string{"shop": {"supermarket"}, "amenity": {"marketplace"}},
		FallbackTags: map[string][]string{"shop": {"convenience"}},
	},
}

func StyleFor(c Category) CategoryStyle {
	if s, ok := categoryStyles[c]; ok {
		return s
	}
	return categoryStyles[FallbackCategory]
}

// IsochroneFeature is one polygon of a loaded archive, identified by
// its travel-time band.
type IsochroneFeature struct {
	Band Band `json:"band"`
}

// ResultDescriptor records everything a caller needs to attach layers
// for one loaded category at one location.
type ResultDescriptor struct {
	Category    Category           `json:"category"`
	Location    Location           `json:"location"`
	Bands       []Band             `json:"bands"`
	Features    []IsochroneFeature `json:"features"`
	SourceKey   string             `json:"sourceKey"`
	SourceLayer string             `json:"sourceLayer"`
	TravelMode  string             `json:"travelMode"`
}

// Stats summarizes loaded isochrone coverage for one category.
type Stats struct {
	Total   int          `json:"total"`
	PerBand map[Band]int `json:"perBand"`
}
