// Package pipeline orchestrates the correction stage: per-exposure
// processing with skip-and-continue semantics and a sequential batch runner
// over the exposure-to-calibration association list.
package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/namrataroy/kderp/internal/calib"
)

// ErrListMismatch reports explicit exposure and calibration lists of
// different lengths, a fatal configuration error.
var ErrListMismatch = errors.New("pipeline: exposure and calibration lists differ in length")

// ExposureRecord associates one science exposure with its calibration.
// Variants optionally overrides the processor's candidate input suffixes;
// ExpTime optionally overrides the header exposure duration. A negative
// CalibSeq means no calibration is available and the exposure is skipped.
type ExposureRecord struct {
	Seq      int
	Variants []string
	ExpTime  float64
	CalibSeq int
}

// FromLists pairs parallel exposure and calibration sequence lists in order.
// Negative calibration ids normalize to calib.SeqNone.
func FromLists(seqs, calibs []int) ([]ExposureRecord, error) {
	if len(seqs) != len(calibs) {
		return nil, fmt.Errorf("%d exposures vs %d calibrations: %w", len(seqs), len(calibs), ErrListMismatch)
	}
	recs := make([]ExposureRecord, 0, len(seqs))
	for i, seq := range seqs {
		recs = append(recs, ExposureRecord{Seq: seq, CalibSeq: normalizeCalib(calibs[i])})
	}
	return recs, nil
}

// ParseLinkTable reads a whitespace-separated "sci_seq calib_seq" table.
// Blank lines and lines starting with '#' are skipped; order is preserved.
func ParseLinkTable(r io.Reader) ([]ExposureRecord, error) {
	var recs []ExposureRecord
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("link table line %d: want 2 columns, got %d", line, len(fields))
		}
		seq, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("link table line %d: exposure id %q: %w", line, fields[0], err)
		}
		cal, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("link table line %d: calibration id %q: %w", line, fields[1], err)
		}
		recs = append(recs, ExposureRecord{Seq: seq, CalibSeq: normalizeCalib(cal)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read link table: %w", err)
	}
	return recs, nil
}

type manifestFile struct {
	Exposures []manifestExposure `yaml:"exposures"`
}

type manifestExposure struct {
	Seq      int      `yaml:"seq"`
	Calib    *int     `yaml:"calib"`
	ExpTime  float64  `yaml:"exptime"`
	Variants []string `yaml:"variants"`
}

// ParseManifest reads a YAML batch manifest. A missing calib field means no
// calibration; unknown fields are rejected.
func ParseManifest(r io.Reader) ([]ExposureRecord, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var mf manifestFile
	if err := dec.Decode(&mf); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	recs := make([]ExposureRecord, 0, len(mf.Exposures))
	for i, e := range mf.Exposures {
		if e.Seq < 0 {
			return nil, fmt.Errorf("manifest exposure %d: negative seq %d", i, e.Seq)
		}
		rec := ExposureRecord{
			Seq:      e.Seq,
			Variants: e.Variants,
			ExpTime:  e.ExpTime,
			CalibSeq: calib.SeqNone,
		}
		if e.Calib != nil {
			rec.CalibSeq = normalizeCalib(*e.Calib)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func normalizeCalib(seq int) int {
	if seq < 0 {
		return calib.SeqNone
	}
	return seq
}
