package correct

import (
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/calib"
	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/grid"
	"github.com/namrataroy/kderp/internal/observe"
)

const responseStampPrefix = "RESP"

// SuppressValue fills response samples the master does not cover and replaces
// non-positive master values. Division by it drives the affected samples
// toward zero, suppressing uncorrectable spectral regions rather than passing
// them through unchanged.
const SuppressValue = 1e9

// ApplyResponse divides every science-like frame in the set by the per-slice
// relative response, aligned to the signal's sampling grid. The master's data
// holds one spectral vector per slice (X axis of length 1) on its own grid.
// Variance divides by the squared response; the mask is only stamped. Grids
// with no common range surface an error wrapping grid.ErrNoOverlap before any
// sample is touched.
func ApplyResponse(set *frame.Set, master calib.Product, log observe.Logger) (frame.Stamp, error) {
	if log == nil {
		log = observe.NopLogger{}
	}
	if err := set.Validate(); err != nil {
		return frame.Stamp{}, fmt.Errorf("validate array set: %w", err)
	}
	if master.Data == nil {
		return frame.Stamp{}, fmt.Errorf("response master %s has no data", master.Path)
	}
	shape := set.Sci.Shape
	mshape := master.Data.Shape
	if mshape.Slices != shape.Slices || mshape.X != 1 {
		return frame.Stamp{}, fmt.Errorf("response master shape %s is not one spectral vector per slice for signal shape %s", mshape, shape)
	}
	sciGrid, ok := set.Sci.Header.Grid()
	if !ok {
		return frame.Stamp{}, fmt.Errorf("signal frame has no sampling grid")
	}
	if sciGrid.Len != shape.Lambda {
		return frame.Stamp{}, fmt.Errorf("sampling grid length %d != spectral axis length %d", sciGrid.Len, shape.Lambda)
	}
	masterGrid, ok := master.Data.Header.Grid()
	if !ok {
		return frame.Stamp{}, fmt.Errorf("response master %s has no sampling grid", master.Path)
	}
	if masterGrid.Len != mshape.Lambda {
		return frame.Stamp{}, fmt.Errorf("response master grid length %d != its spectral axis length %d", masterGrid.Len, mshape.Lambda)
	}
	ov, err := grid.Align(sciGrid, masterGrid)
	if err != nil {
		return frame.Stamp{}, fmt.Errorf("align response grid: %w", err)
	}

	resp := make([]float64, shape.Lambda)
	for s := 0; s < shape.Slices; s++ {
		for l := range resp {
			resp[l] = SuppressValue
		}
		mspec := master.Data.Spectrum(s, 0)
		for j := 0; j < ov.Len(); j++ {
			v := mspec[ov.TgtStart+j]
			if v <= 0 {
				v = SuppressValue
			}
			resp[ov.RefStart+j] = v
		}
		for _, f := range set.SciLike() {
			for x := 0; x < shape.X; x++ {
				spec := f.Spectrum(s, x)
				for l, r := range resp {
					spec[l] /= r
				}
			}
		}
		for x := 0; x < shape.X; x++ {
			vspec := set.Var.Spectrum(s, x)
			for l, r := range resp {
				vspec[l] /= r * r
			}
		}
	}

	stamp := frame.Stamp{
		Applied:   true,
		CalFile:   master.Path,
		CalSource: master.Source,
		When:      time.Now().UTC(),
	}
	history := fmt.Sprintf("relative response divided: %s", master.Path)
	stampAll(set, stamp, responseStampPrefix, history)
	log.Debug("response division applied",
		"master", master.Path, "overlap", ov.Len(), "spectral_len", shape.Lambda)
	return stamp, nil
}
