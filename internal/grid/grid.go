// Package grid models 1-D wavelength sampling axes and computes the
// overlapping index ranges between two axes that share a step size.
package grid

import (
	"errors"
	"fmt"
	"math"
)

// ErrNoOverlap reports that two grids share no common coordinate range.
var ErrNoOverlap = errors.New("grids do not overlap")

// Grid describes a physical coordinate axis sampled at Len points starting at
// Origin with spacing Step. Two grids being aligned are assumed to share the
// same Step; only Origin and Len may differ.
type Grid struct {
	Origin float64 `json:"origin"`
	Step   float64 `json:"step"`
	Len    int     `json:"len"`
}

// CoordAt returns the physical coordinate of sample i.
func (g Grid) CoordAt(i int) float64 { return g.Origin + g.Step*float64(i) }

// End returns the physical coordinate of the last sample.
func (g Grid) End() float64 { return g.CoordAt(g.Len - 1) }

// Valid reports whether the grid is usable for alignment.
func (g Grid) Valid() bool { return g.Step > 0 && g.Len > 0 }

// Overlap holds inclusive index ranges of equal length into a reference and a
// target grid covering their common coordinate range.
type Overlap struct {
	RefStart int
	RefEnd   int
	TgtStart int
	TgtEnd   int
}

// Len returns the number of overlapping samples.
func (o Overlap) Len() int { return o.RefEnd - o.RefStart + 1 }

// Align computes the overlapping index ranges between ref and tgt. The common
// range starts at the larger of the two origins and ends at the smaller of the
// two end coordinates: the grid owning that boundary anchors at its own
// first/last index and the other grid's index is the rounded pixel offset
// between the boundary coordinates. Pixel offsets round half away from zero.
// Degenerate grids and disjoint ranges return an error wrapping ErrNoOverlap.
func Align(ref, tgt Grid) (Overlap, error) {
	if !ref.Valid() || !tgt.Valid() {
		return Overlap{}, fmt.Errorf("degenerate grid (ref %+v, target %+v): %w", ref, tgt, ErrNoOverlap)
	}
	step := ref.Step

	var ov Overlap
	if ref.Origin >= tgt.Origin {
		ov.RefStart = 0
		ov.TgtStart = pixelOffset(ref.Origin-tgt.Origin, step)
	} else {
		ov.TgtStart = 0
		ov.RefStart = pixelOffset(tgt.Origin-ref.Origin, step)
	}
	if ref.End() <= tgt.End() {
		ov.RefEnd = ref.Len - 1
		ov.TgtEnd = tgt.Len - 1 - pixelOffset(tgt.End()-ref.End(), step)
	} else {
		ov.TgtEnd = tgt.Len - 1
		ov.RefEnd = ref.Len - 1 - pixelOffset(ref.End()-tgt.End(), step)
	}

	if ov.RefStart > ov.RefEnd || ov.TgtStart > ov.TgtEnd {
		return Overlap{}, fmt.Errorf("ref [%g, %g] vs target [%g, %g]: %w",
			ref.Origin, ref.End(), tgt.Origin, tgt.End(), ErrNoOverlap)
	}
	if ov.RefEnd-ov.RefStart != ov.TgtEnd-ov.TgtStart {
		return Overlap{}, fmt.Errorf("uneven ranges ref [%d, %d] vs target [%d, %d]: %w",
			ov.RefStart, ov.RefEnd, ov.TgtStart, ov.TgtEnd, ErrNoOverlap)
	}
	return ov, nil
}

// pixelOffset converts a coordinate delta to whole samples, rounding half away
// from zero.
func pixelOffset(delta, step float64) int {
	return int(math.Round(delta / step))
}
