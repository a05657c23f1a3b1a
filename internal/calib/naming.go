package calib

import (
	"fmt"
	"path"
	"strings"
)

// Side identifies a companion array derived from the same exposure as the
// primary signal. The single-letter cube marker is the first letter of the
// role string.
type Side string

const (
	SideVar  Side = "var"
	SideMask Side = "msk"
	SideSky  Side = "sky"
	SideObj  Side = "obj"
)

// Naming derives canonical store keys for frames and master products. Dir is
// a slash-separated key prefix inside the frame store (empty for the root),
// Prefix the instrument file prefix (e.g. "kb").
type Naming struct {
	Dir    string
	Prefix string
}

// FrameID formats a bare sequence number as a frame identifier, e.g.
// "kb00042".
func (n Naming) FrameID(seq int) string {
	return fmt.Sprintf("%s%05d", n.Prefix, seq)
}

// FramePath returns the key of a product of the given exposure, e.g.
// FramePath(42, "_icube") -> "kb00042_icube.frm".
func (n Naming) FramePath(seq int, suffix string) string {
	return path.Join(n.Dir, n.FrameID(seq)+suffix+".frm")
}

// MasterPath returns the key of the master product for a calibration
// sequence, e.g. MasterPath(KindDark, 42) -> "kb00042_mdark.frm".
func (n Naming) MasterPath(kind Kind, seq int) string {
	var suffix string
	switch kind {
	case KindDark:
		suffix = "_mdark"
	case KindResponse:
		suffix = "_mresp"
	default:
		suffix = "_m" + string(kind)
	}
	return n.FramePath(seq, suffix)
}

// SidePath derives a side-file key from a master key by inserting the side
// role before the extension: "kb00042_mdark.frm" -> "kb00042_mdark_var.frm".
func (n Naming) SidePath(masterKey string, side Side) string {
	ext := path.Ext(masterKey)
	return strings.TrimSuffix(masterKey, ext) + "_" + string(side) + ext
}

// SideSuffix derives a side-product suffix from a science-product suffix.
// Cube suffixes swap the intensity marker ("_icubed" -> "_vcubed"); plain
// image suffixes use the flat side name ("_int" -> "_var").
func (n Naming) SideSuffix(suffix string, side Side) string {
	if strings.Contains(suffix, "icube") {
		return strings.Replace(suffix, "icube", string(side[:1])+"cube", 1)
	}
	return "_" + string(side)
}
