package correct

import (
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/calib"
	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/observe"
)

const darkStampPrefix = "DARK"

// DarkOptions carries the exposure durations that set the subtraction scale.
// Non-positive values mean unknown.
type DarkOptions struct {
	ScienceExpTime float64
	DarkExpTime    float64
}

// ApplyDark subtracts the master dark from every science-like frame in the
// set, scaled by the exposure-time ratio. When either duration is unknown the
// scale falls back to unity with a warning. The master's variance adds into
// the set's variance and its defect counts add into the mask; the master's
// own variance is not rescaled by the square of the signal scale.
func ApplyDark(set *frame.Set, master calib.Product, opts DarkOptions, log observe.Logger) (frame.Stamp, error) {
	if log == nil {
		log = observe.NopLogger{}
	}
	if err := set.Validate(); err != nil {
		return frame.Stamp{}, fmt.Errorf("validate array set: %w", err)
	}
	if master.Data == nil {
		return frame.Stamp{}, fmt.Errorf("dark master %s has no data", master.Path)
	}
	shape := set.Sci.Shape
	if master.Data.Shape != shape {
		return frame.Stamp{}, fmt.Errorf("dark master shape %s != signal shape %s", master.Data.Shape, shape)
	}
	if master.Var != nil && master.Var.Shape != shape {
		return frame.Stamp{}, fmt.Errorf("dark master variance shape %s != signal shape %s", master.Var.Shape, shape)
	}
	if master.Mask != nil && master.Mask.Shape != shape {
		return frame.Stamp{}, fmt.Errorf("dark master mask shape %s != signal shape %s", master.Mask.Shape, shape)
	}

	scale := 1.0
	if opts.ScienceExpTime > 0 && opts.DarkExpTime > 0 {
		scale = opts.ScienceExpTime / opts.DarkExpTime
	} else {
		log.Warn("exposure times unavailable, dark scale falls back to unity",
			"science_exptime", opts.ScienceExpTime, "dark_exptime", opts.DarkExpTime)
	}

	for _, f := range set.SciLike() {
		for i, d := range master.Data.Data {
			f.Data[i] -= d * scale
		}
	}
	if master.Var != nil {
		for i, v := range master.Var.Data {
			set.Var.Data[i] += v
		}
	}
	if master.Mask != nil {
		// Defect counts accumulate by summation, not OR.
		for i, m := range master.Mask.Data {
			set.Mask.Data[i] += m
		}
	}

	stamp := frame.Stamp{
		Applied:   true,
		CalFile:   master.Path,
		CalSource: master.Source,
		When:      time.Now().UTC(),
	}
	history := fmt.Sprintf("dark subtracted: %s scale %.6g", master.Path, scale)
	stampAll(set, stamp, darkStampPrefix, history)
	log.Debug("dark subtraction applied", "master", master.Path, "scale", scale)
	return stamp, nil
}
