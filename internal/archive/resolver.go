package archive

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

// Region is one pre-generated coverage area.
type Region struct {
	// Slug is the sanitized location name baked into archive filenames,
	// e.g. "Portland_ME_USA".
	Slug   string
	Center model.Location
	// Bound is the area the archive actually covers.
	Bound orb.Bound
}

func (r Region) contains(loc model.Location) bool {
	return r.Bound.Contains(loc.Point())
}

// Resolver maps (category, location) to an archive reference. It is a
// pure lookup: out-of-coverage locations degrade to the nearest known
// region and finally to the default region, never to an error.
type Resolver struct {
	baseURL string
	regions []Region
	def     Region
}

func NewResolver(baseURL string, def Region, regions ...Region) *Resolver {
	return &Resolver{baseURL: baseURL, regions: regions, def: def}
}

// Resolve picks the archive for a category at a location. Containment
// wins; otherwise the nearest region center by great-circle distance;
// an empty region list falls back to the default region.
func (r *Resolver) Resolve(cat model.Category, loc model.Location) Ref {
	region := r.regionFor(loc)
	return newRef(r.baseURL, cat.String(), region.Slug)
}

func (r *Resolver) regionFor(loc model.Location) Region {
	for _, reg := range r.regions {
		if reg.contains(loc) {
			return reg
		}
	}
	if len(r.regions) == 0 {
		return r.def
	}

	p := s2.LatLngFromDegrees(loc.Lat, loc.Lng)
	best := r.def
	bestDist := s2.LatLngFromDegrees(r.def.Center.Lat, r.def.Center.Lng).Distance(p)
	for _, reg := range r.regions {
		d := s2.LatLngFromDegrees(reg.Center.Lat, reg.Center.Lng).Distance(p)
		if d < bestDist {
			best, bestDist = reg, d
		}
	}
	return best
}

// DefaultRegion builds a region around a center point with a bounding
// box matching the pipeline's 5 km generation radius.
func DefaultRegion(slug string, center model.Location) Region {
	const boxDeg = 0.05 // ~5 km of latitude
	return Region{
		Slug:   slug,
		Center: center,
		Bound: orb.Bound{
			Min: orb.Point{center.Lng - boxDeg, center.Lat - boxDeg},
			Max: orb.Point{center.Lng + boxDeg, center.Lat + boxDeg},
		},
	}
}
