// Package isokeys derives the deterministic identifiers that tie
// categories, locations, sources and layers together.
package isokeys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/quantize"
)

// SourceKey buckets a (category, location) pair through the quantizer.
// Identical buckets reuse one registered source.
func SourceKey(cat model.Category, loc model.Location, q quantize.Quantizer) string {
	return fmt.Sprintf("%s-src-%s", sanitize(cat.String()), sanitize(q.Quantize(loc)))
}

// LayerID identifies the renderer layer for one (category, band) pair.
// At most one layer exists per id.
func LayerID(cat model.Category, band model.Band) string {
	return fmt.Sprintf("%s-isochrone-%d", sanitize(cat.String()), int(band))
}

// LayerIDs expands a category across every configured band.
func LayerIDs(cat model.Category, bands []model.Band) []string {
	out := make([]string, 0, len(bands))
	for _, b := range bands {
		out = append(out, LayerID(cat, b))
	}
	return out
}

// CacheKey is the exact (unquantized) memoization key. The readable
// prefix aids debugging; the hash suffix guarantees distinct keys for
// any coordinate pair the %.6f prefix would collide on.
func CacheKey(cat model.Category, loc model.Location) string {
	exact := fmt.Sprintf("%s|%v|%v", cat, loc.Lat, loc.Lng)
	sum := xxhash.Sum64String(exact)
	return fmt.Sprintf("%s:%.6f_%.6f:x=%016x", sanitize(cat.String()), loc.Lat, loc.Lng, sum)
}

// sanitize keeps keys renderer- and redis-safe: ASCII alphanumerics
// plus a few separators, with runs of replacements collapsed.
func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
