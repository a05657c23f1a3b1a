package core

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/namrataroy/kderp/internal/frame"
)

// Container layout: 4-byte magic, 1-byte payload kind, little-endian uint32
// header length, JSON header block, then the raw samples little-endian.
const containerMagic = "F3D1"

const (
	payloadFloat64 byte = 1 // science / variance / companion data
	payloadInt32   byte = 2 // defect masks
)

// maxHeaderBytes bounds the header block so a corrupt length prefix cannot
// drive a huge allocation.
const maxHeaderBytes = 1 << 20

type containerHeader struct {
	Shape   frame.Shape  `json:"shape"`
	Cards   []frame.Card `json:"cards,omitempty"`
	History []string     `json:"history,omitempty"`
}

// EncodeFrame writes f to w in container format.
func EncodeFrame(w io.Writer, f *frame.Frame) error {
	if err := checkShape(f.Shape, len(f.Data)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := writeHeader(w, payloadFloat64, f.Shape, f.Header); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, f.Data); err != nil {
		return fmt.Errorf("encode frame: payload: %w", err)
	}
	return nil
}

// EncodeMask writes m to w in container format.
func EncodeMask(w io.Writer, m *frame.MaskFrame) error {
	if err := checkShape(m.Shape, len(m.Data)); err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}
	if err := writeHeader(w, payloadInt32, m.Shape, m.Header); err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.Data); err != nil {
		return fmt.Errorf("encode mask: payload: %w", err)
	}
	return nil
}

// DecodeFrame reads one container from r and rejects mask payloads.
func DecodeFrame(r io.Reader) (*frame.Frame, error) {
	hdr, err := readHeader(r, payloadFloat64)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	f := frame.New(hdr.Shape)
	f.Header.Cards = hdr.Cards
	f.Header.Lines = hdr.History
	if err := binary.Read(r, binary.LittleEndian, f.Data); err != nil {
		return nil, fmt.Errorf("decode frame: payload: %w", err)
	}
	return f, nil
}

// DecodeMask reads one container from r and rejects frame payloads.
func DecodeMask(r io.Reader) (*frame.MaskFrame, error) {
	hdr, err := readHeader(r, payloadInt32)
	if err != nil {
		return nil, fmt.Errorf("decode mask: %w", err)
	}
	m := frame.NewMask(hdr.Shape)
	m.Header.Cards = hdr.Cards
	m.Header.Lines = hdr.History
	if err := binary.Read(r, binary.LittleEndian, m.Data); err != nil {
		return nil, fmt.Errorf("decode mask: payload: %w", err)
	}
	return m, nil
}

func checkShape(s frame.Shape, n int) error {
	if !s.Valid() {
		return fmt.Errorf("invalid shape %s", s)
	}
	if n != s.Count() {
		return fmt.Errorf("shape %s addresses %d samples, data holds %d", s, s.Count(), n)
	}
	return nil
}

func writeHeader(w io.Writer, kind byte, shape frame.Shape, h *frame.Header) error {
	doc := containerHeader{Shape: shape}
	if h != nil {
		doc.Cards = h.Cards
		doc.History = h.Lines
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(containerMagic)); err != nil {
		return err
	}
	if _, err := w.Write([]byte{kind}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(j))); err != nil {
		return err
	}
	_, err = w.Write(j)
	return err
}

func readHeader(r io.Reader, wantKind byte) (containerHeader, error) {
	var pre [5]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return containerHeader{}, err
	}
	if string(pre[:4]) != containerMagic {
		return containerHeader{}, fmt.Errorf("bad magic %q", pre[:4])
	}
	if pre[4] != wantKind {
		return containerHeader{}, fmt.Errorf("payload kind %d, want %d", pre[4], wantKind)
	}
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return containerHeader{}, err
	}
	if n > maxHeaderBytes {
		return containerHeader{}, fmt.Errorf("header block %d bytes exceeds limit", n)
	}
	j := make([]byte, n)
	if _, err := io.ReadFull(r, j); err != nil {
		return containerHeader{}, err
	}
	var hdr containerHeader
	if err := json.Unmarshal(j, &hdr); err != nil {
		return containerHeader{}, err
	}
	if !hdr.Shape.Valid() {
		return containerHeader{}, fmt.Errorf("invalid shape %s", hdr.Shape)
	}
	return hdr, nil
}
