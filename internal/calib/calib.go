// Package calib resolves calibration identifiers to master calibration
// products. A product is built at most once per identifier, persisted through
// the frame store, and found again on later runs purely by key presence. The
// package owns canonical name derivation for frames, masters, and their
// variance/mask side files.
package calib

import (
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/frame"
)

// Kind selects which master calibration product a sequence number refers to.
type Kind string

const (
	// KindDark is the master dark current product, subtracted pixel-for-pixel.
	KindDark Kind = "dark"
	// KindResponse is the master relative-response product, divided out per
	// slice along the spectral axis.
	KindResponse Kind = "response"
)

// SeqNone marks an exposure with no associated calibration. Resolve treats it
// as a definitive miss, never an error.
const SeqNone = -1

// Product is a loaded master calibration product. Var and Mask are nil when
// the corresponding side files are not persisted. Data carries the sampling
// grid in its header when the product is grid-bearing.
type Product struct {
	Kind    Kind
	Seq     int
	Path    string
	Data    *frame.Frame
	Var     *frame.Frame
	Mask    *frame.MaskFrame
	Source  string
	BuiltAt time.Time
}

// NotBuiltError reports a failed master construction. The master may be
// partially persisted; the next resolve decides by key presence alone.
type NotBuiltError struct {
	Kind Kind
	Seq  int
	Err  error
}

func (e *NotBuiltError) Error() string {
	return fmt.Sprintf("build %s master for seq %d: %v", e.Kind, e.Seq, e.Err)
}

func (e *NotBuiltError) Unwrap() error { return e.Err }
