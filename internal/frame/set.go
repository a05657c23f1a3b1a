package frame

import "fmt"

// Companion roles for auxiliary cubes that ride along with the primary signal.
const (
	RoleSky    = "sky"
	RoleObject = "obj"
)

// Companion is an auxiliary cube (e.g. a nod-and-shuffle sky or object
// sub-exposure) that must receive the identical transform as the signal.
type Companion struct {
	Role  string
	Frame *Frame
}

// Set groups the arrays a correction mutates in lockstep: signal, variance,
// mask, and any auxiliary companions. Grouping them behind one value prevents
// a sibling array from being skipped by an applier.
type Set struct {
	Sci  *Frame
	Var  *Frame
	Mask *MaskFrame
	Aux  []Companion
}

// Validate checks the set is complete and shape-consistent.
func (s *Set) Validate() error {
	if s.Sci == nil || s.Var == nil || s.Mask == nil {
		return fmt.Errorf("array set incomplete: sci=%v var=%v mask=%v",
			s.Sci != nil, s.Var != nil, s.Mask != nil)
	}
	if !s.Sci.Shape.Valid() {
		return fmt.Errorf("invalid signal shape %s", s.Sci.Shape)
	}
	if s.Var.Shape != s.Sci.Shape {
		return fmt.Errorf("variance shape %s != signal shape %s", s.Var.Shape, s.Sci.Shape)
	}
	if s.Mask.Shape != s.Sci.Shape {
		return fmt.Errorf("mask shape %s != signal shape %s", s.Mask.Shape, s.Sci.Shape)
	}
	for _, c := range s.Aux {
		if c.Frame == nil {
			return fmt.Errorf("auxiliary %q has no frame", c.Role)
		}
		if c.Frame.Shape != s.Sci.Shape {
			return fmt.Errorf("auxiliary %q shape %s != signal shape %s", c.Role, c.Frame.Shape, s.Sci.Shape)
		}
	}
	return nil
}

// SciLike returns the signal frame followed by every auxiliary frame: the
// arrays that receive the identical correction transform.
func (s *Set) SciLike() []*Frame {
	out := make([]*Frame, 0, 1+len(s.Aux))
	out = append(out, s.Sci)
	for _, c := range s.Aux {
		out = append(out, c.Frame)
	}
	return out
}

// Headers returns every output header in the set, for provenance stamping.
func (s *Set) Headers() []*Header {
	out := make([]*Header, 0, 3+len(s.Aux))
	out = append(out, s.Sci.Header, s.Var.Header, s.Mask.Header)
	for _, c := range s.Aux {
		out = append(out, c.Frame.Header)
	}
	return out
}
