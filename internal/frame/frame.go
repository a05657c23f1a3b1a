// Package frame defines the in-memory science array model: dense data cubes,
// their metadata headers, and the grouped array set a correction must mutate
// in lockstep.
package frame

import "fmt"

// Shape describes cube geometry: a small fixed number of image slices, a
// spatial axis, and a spectral axis. Plain 2-D images use Slices=1 with X/Lambda
// as rows/columns; appliers only require shape agreement, not dimensionality.
type Shape struct {
	Slices int `json:"slices"`
	X      int `json:"x"`
	Lambda int `json:"lambda"`
}

// Count returns the number of samples the shape addresses.
func (s Shape) Count() int { return s.Slices * s.X * s.Lambda }

// Valid reports whether all axes are positive.
func (s Shape) Valid() bool { return s.Slices > 0 && s.X > 0 && s.Lambda > 0 }

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Slices, s.X, s.Lambda)
}

func (s Shape) index(slice, x, l int) int {
	return (slice*s.X+x)*s.Lambda + l
}

// Frame is a dense row-major float64 cube with its metadata header.
type Frame struct {
	Shape  Shape
	Data   []float64
	Header *Header
}

// New allocates a zero-filled frame with an empty header.
func New(shape Shape) *Frame {
	return &Frame{Shape: shape, Data: make([]float64, shape.Count()), Header: NewHeader()}
}

// At returns the sample at (slice, x, l).
func (f *Frame) At(slice, x, l int) float64 { return f.Data[f.Shape.index(slice, x, l)] }

// SetAt stores the sample at (slice, x, l).
func (f *Frame) SetAt(slice, x, l int, v float64) { f.Data[f.Shape.index(slice, x, l)] = v }

// Spectrum returns the spectral vector at (slice, x) as a view into Data.
// Mutations write through to the frame.
func (f *Frame) Spectrum(slice, x int) []float64 {
	start := f.Shape.index(slice, x, 0)
	return f.Data[start : start+f.Shape.Lambda]
}

// Clone deep-copies the frame including its header.
func (f *Frame) Clone() *Frame {
	out := &Frame{Shape: f.Shape, Data: make([]float64, len(f.Data)), Header: f.Header.Clone()}
	copy(out.Data, f.Data)
	return out
}

// MaskFrame is a dense row-major int32 cube accumulating defect flags.
type MaskFrame struct {
	Shape  Shape
	Data   []int32
	Header *Header
}

// NewMask allocates a zero-filled mask with an empty header.
func NewMask(shape Shape) *MaskFrame {
	return &MaskFrame{Shape: shape, Data: make([]int32, shape.Count()), Header: NewHeader()}
}

// At returns the flag count at (slice, x, l).
func (m *MaskFrame) At(slice, x, l int) int32 { return m.Data[m.Shape.index(slice, x, l)] }

// SetAt stores the flag count at (slice, x, l).
func (m *MaskFrame) SetAt(slice, x, l int, v int32) { m.Data[m.Shape.index(slice, x, l)] = v }

// Clone deep-copies the mask including its header.
func (m *MaskFrame) Clone() *MaskFrame {
	out := &MaskFrame{Shape: m.Shape, Data: make([]int32, len(m.Data)), Header: m.Header.Clone()}
	copy(out.Data, m.Data)
	return out
}
