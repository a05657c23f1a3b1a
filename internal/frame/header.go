package frame

import (
	"time"

	"github.com/namrataroy/kderp/internal/grid"
)

// Well-known header keys. Values are loosely typed; accessors normalize.
const (
	KeyExpTime    = "XPOSURE" // exposure duration, seconds
	KeySourceSeq  = "SRCSEQ"  // originating frame sequence number
	KeyBuiltAt    = "BUILTAT" // master product build timestamp, RFC 3339
	KeyGridOrigin = "WAVE0"
	KeyGridStep   = "DWAVE"
	KeyGridLen    = "NWAVE"
)

// Card is one header key/value pair. Values survive the JSON codec as bool,
// float64, or string; integer writes come back as float64.
type Card struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Header holds ordered metadata cards plus append-only history lines.
type Header struct {
	Cards   []Card   `json:"cards,omitempty"`
	Lines   []string `json:"history,omitempty"`
	indexed map[string]int
}

// NewHeader returns an empty header.
func NewHeader() *Header { return &Header{} }

func (h *Header) reindex() {
	h.indexed = make(map[string]int, len(h.Cards))
	for i, c := range h.Cards {
		h.indexed[c.Key] = i
	}
}

// Set stores a card, replacing any existing value while keeping card order.
func (h *Header) Set(key string, value any) {
	if h.indexed == nil {
		h.reindex()
	}
	if i, ok := h.indexed[key]; ok {
		h.Cards[i].Value = value
		return
	}
	h.Cards = append(h.Cards, Card{Key: key, Value: value})
	h.indexed[key] = len(h.Cards) - 1
}

// Lookup returns the raw card value.
func (h *Header) Lookup(key string) (any, bool) {
	if h.indexed == nil || len(h.indexed) != len(h.Cards) {
		h.reindex()
	}
	i, ok := h.indexed[key]
	if !ok {
		return nil, false
	}
	return h.Cards[i].Value, true
}

// Float returns a numeric card as float64.
func (h *Header) Float(key string) (float64, bool) {
	v, ok := h.Lookup(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Int returns a numeric card as int, truncating float values.
func (h *Header) Int(key string) (int, bool) {
	f, ok := h.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool returns a boolean card.
func (h *Header) Bool(key string) (bool, bool) {
	v, ok := h.Lookup(key)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// String returns a string card.
func (h *Header) String(key string) (string, bool) {
	v, ok := h.Lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// AddHistory appends a free-text history line.
func (h *Header) AddHistory(line string) { h.Lines = append(h.Lines, line) }

// History returns the accumulated history lines.
func (h *Header) History() []string { return h.Lines }

// Clone deep-copies the header.
func (h *Header) Clone() *Header {
	out := &Header{}
	if h == nil {
		return out
	}
	out.Cards = append(out.Cards, h.Cards...)
	out.Lines = append(out.Lines, h.Lines...)
	return out
}

// SetGrid writes the wavelength sampling cards.
func (h *Header) SetGrid(g grid.Grid) {
	h.Set(KeyGridOrigin, g.Origin)
	h.Set(KeyGridStep, g.Step)
	h.Set(KeyGridLen, g.Len)
}

// Grid reads the wavelength sampling cards.
func (h *Header) Grid() (grid.Grid, bool) {
	origin, ok1 := h.Float(KeyGridOrigin)
	step, ok2 := h.Float(KeyGridStep)
	n, ok3 := h.Int(KeyGridLen)
	if !ok1 || !ok2 || !ok3 {
		return grid.Grid{}, false
	}
	return grid.Grid{Origin: origin, Step: step, Len: n}, true
}

// Stamp records that a calibration correction was applied: the flag, the
// calibration file used, and the calibration product's source frame.
type Stamp struct {
	Applied   bool
	CalFile   string
	CalSource string
	When      time.Time
}

// ApplyTo writes the stamp cards under the given key prefix (<prefix>COR,
// <prefix>FILE, <prefix>SRC) and appends the history line.
func (s Stamp) ApplyTo(h *Header, prefix, history string) {
	h.Set(prefix+"COR", s.Applied)
	h.Set(prefix+"FILE", s.CalFile)
	h.Set(prefix+"SRC", s.CalSource)
	if history != "" {
		h.AddHistory(history)
	}
}
