package isokeys

import (
	"regexp"
	"testing"
	"unicode"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
	"github.com/PhilipMathieu/coffee-milk-beer/internal/quantize"
)

func TestLayerID_Format(t *testing.T) {
	if got, want := LayerID(model.CategoryCoffee, 5), "coffee-isochrone-5"; got != want {
		t.Fatalf("LayerID = %q, want %q", got, want)
	}
	ids := LayerIDs(model.CategoryGrocery, []model.Band{5, 10, 15})
	want := []string{"grocery-isochrone-5", "grocery-isochrone-10", "grocery-isochrone-15"}
	if len(ids) != len(want) {
		t.Fatalf("got %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSourceKey_QuantizedReuse(t *testing.T) {
	q := quantize.NewDecimal(3)
	a := SourceKey(model.CategoryCoffee, model.Location{Lat: 43.65912, Lng: -70.25678}, q)
	b := SourceKey(model.CategoryCoffee, model.Location{Lat: 43.65908, Lng: -70.25682}, q)
	if a != b {
		t.Fatalf("same bucket must yield same source key: %s vs %s", a, b)
	}
	c := SourceKey(model.CategoryCoffee, model.Location{Lat: 43.6691, Lng: -70.2568}, q)
	if a == c {
		t.Fatal("different buckets must yield different source keys")
	}
	d := SourceKey(model.CategoryBar, model.Location{Lat: 43.65912, Lng: -70.25678}, q)
	if a == d {
		t.Fatal("categories must not share source keys")
	}
}

func TestCacheKey_ExactAndDeterministic(t *testing.T) {
	loc := model.Location{Lat: 43.6591, Lng: -70.2568}
	k1 := CacheKey(model.CategoryBar, loc)
	k2 := CacheKey(model.CategoryBar, loc)
	if k1 != k2 {
		t.Fatalf("cache key not deterministic:\n k1=%s\n k2=%s", k1, k2)
	}

	// Two locations inside one quantization bucket still cache separately.
	k3 := CacheKey(model.CategoryBar, model.Location{Lat: 43.65912, Lng: -70.2568})
	if k1 == k3 {
		t.Fatal("cache keys must be exact, not quantized")
	}

	if !regexp.MustCompile(`:x=[0-9a-f]{16}$`).MatchString(k1) {
		t.Fatalf("missing hash suffix in key: %s", k1)
	}
}

func TestCacheKey_ASCIISafe(t *testing.T) {
	k := CacheKey(model.Category("café bars"), model.Location{Lat: 1, Lng: 2})
	for _, r := range k {
		if r > unicode.MaxASCII {
			t.Fatalf("non-ASCII rune leaked into key: %q in %s", r, k)
		}
	}
}
