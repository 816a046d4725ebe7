// Package quantize rounds locations so nearby queries collapse onto a
// shared source key.
package quantize

import (
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"

	"github.com/PhilipMathieu/coffee-milk-beer/internal/core/model"
)

// Quantizer maps a location onto a stable bucket token. Two locations
// in the same bucket share one registered source.
type Quantizer interface {
	Quantize(loc model.Location) string
}

// Decimal rounds coordinates to a fixed number of decimal digits. At
// the default 3 digits a bucket spans roughly 100 m, matching the
// generation pipeline's reuse window.
type Decimal struct {
	Precision int
}

func NewDecimal(precision int) Decimal {
	if precision < 0 {
		precision = 0
	}
	if precision > 8 {
		precision = 8
	}
	return Decimal{Precision: precision}
}

func (d Decimal) Quantize(loc model.Location) string {
	p := math.Pow10(d.Precision)
	lat := math.Round(loc.Lat*p) / p
	lng := math.Round(loc.Lng*p) / p
	return fmt.Sprintf("%.*f_%.*f", d.Precision, lat, d.Precision, lng)
}

// H3 buckets locations into H3 cells. Cells have near-uniform area, so
// this avoids the latitude-dependent bucket sizes of decimal rounding
// in dense urban deployments.
type H3 struct {
	Res int
}

func NewH3(res int) H3 {
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}
	return H3{Res: res}
}

func (q H3) Quantize(loc model.Location) string {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: loc.Lat, Lng: loc.Lng}, q.Res)
	if err != nil {
		// Out-of-range input degrades to a degree-grid bucket rather
		// than failing the whole load path.
		return Decimal{Precision: 0}.Quantize(loc)
	}
	return cell.String()
}
