package quantize

import (
	"testing"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

func TestDecimal_NearbyLocationsShareBucket(t *testing.T) {
	q := NewDecimal(3)
	a := q.Quantize(model.Location{Lat: 43.65912, Lng: -70.25678})
	b := q.Quantize(model.Location{Lat: 43.65908, Lng: -70.25682})
	if a != b {
		t.Fatalf("locations ~10m apart should share a bucket: %s vs %s", a, b)
	}
}

func TestDecimal_DistantLocationsDiffer(t *testing.T) {
	q := NewDecimal(3)
	a := q.Quantize(model.Location{Lat: 43.6591, Lng: -70.2568})
	b := q.Quantize(model.Location{Lat: 43.6691, Lng: -70.2568})
	if a == b {
		t.Fatalf("locations ~1km apart must not share a bucket: %s", a)
	}
}

func TestDecimal_Deterministic(t *testing.T) {
	q := NewDecimal(3)
	loc := model.Location{Lat: 43.6591, Lng: -70.2568}
	if q.Quantize(loc) != q.Quantize(loc) {
		t.Fatal("quantization must be deterministic")
	}
	if got, want := q.Quantize(loc), "43.659_-70.257"; got != want {
		t.Fatalf("bucket token = %q, want %q", got, want)
	}
}

func TestDecimal_PrecisionClamped(t *testing.T) {
	if d := NewDecimal(-1); d.Precision != 0 {
		t.Fatalf("negative precision should clamp to 0, got %d", d.Precision)
	}
	if d := NewDecimal(12); d.Precision != 8 {
		t.Fatalf("oversized precision should clamp to 8, got %d", d.Precision)
	}
}

func TestH3_NearbyLocationsShareCell(t *testing.T) {
	q := NewH3(9)
	a := q.Quantize(model.Location{Lat: 43.65910, Lng: -70.25680})
	b := q.Quantize(model.Location{Lat: 43.65911, Lng: -70.25681})
	if a != b {
		t.Fatalf("adjacent points should land in the same cell: %s vs %s", a, b)
	}
	c := q.Quantize(model.Location{Lat: 43.7591, Lng: -70.2568})
	if a == c {
		t.Fatal("points ~11km apart must not share a res-9 cell")
	}
}
