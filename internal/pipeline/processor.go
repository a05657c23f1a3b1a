package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/calib"
	"github.com/namrataroy/kderp/internal/correct"
	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
	"github.com/namrataroy/kderp/internal/grid"
	"github.com/namrataroy/kderp/internal/observe"
)

// State is the terminal disposition of one exposure.
type State string

const (
	StatePending          State = "pending"
	StateSkippedNoInput   State = "skipped_no_input"
	StateSkippedExists    State = "skipped_exists"
	StateSkippedNoCalib   State = "skipped_no_calib"
	StateSkippedNoOverlap State = "skipped_no_overlap"
	StateFailed           State = "failed"
	StateCorrected        State = "corrected"
)

// Skipped reports whether the state is one of the recoverable-skip outcomes.
func (s State) Skipped() bool {
	switch s {
	case StateSkippedNoInput, StateSkippedExists, StateSkippedNoCalib, StateSkippedNoOverlap:
		return true
	}
	return false
}

// PlaceholderSpike is the single nonzero sample written into a synthesized
// variance or mask placeholder, keeping downstream numeric-range assumptions
// valid on an otherwise all-zero array.
const PlaceholderSpike = 1.0

// Outcome is the per-exposure result collected by the batch runner.
type Outcome struct {
	Seq     int
	State   State
	Reason  string
	CalFile string
	Elapsed time.Duration
}

// ProcessorConfig selects the correction mode and its file conventions.
// Empty Variants and OutputSuffix take the mode's defaults.
type ProcessorConfig struct {
	Mode         calib.Kind
	Variants     []string
	OutputSuffix string
	Clobber      bool
}

// DefaultOutputSuffix returns the corrected-product suffix for a mode.
func DefaultOutputSuffix(kind calib.Kind) string {
	switch kind {
	case calib.KindDark:
		return "_icubed"
	case calib.KindResponse:
		return "_icuber"
	}
	return ""
}

// Processor runs a single exposure through the correction stage: locate the
// input set, decide skip or process, resolve the master, apply the
// correction, and persist the outputs.
type Processor struct {
	store  framestore.Store
	cache  *calib.Cache
	naming calib.Naming
	cfg    ProcessorConfig
	log    observe.Logger
	clock  func() time.Time
}

// NewProcessor validates the configuration and fills mode defaults. A nil
// logger is replaced with a no-op one.
func NewProcessor(store framestore.Store, cache *calib.Cache, naming calib.Naming, cfg ProcessorConfig, log observe.Logger) (*Processor, error) {
	switch cfg.Mode {
	case calib.KindDark, calib.KindResponse:
	default:
		return nil, fmt.Errorf("unknown correction mode %q", cfg.Mode)
	}
	if len(cfg.Variants) == 0 {
		cfg.Variants = calib.DefaultVariants(cfg.Mode)
	}
	if cfg.OutputSuffix == "" {
		cfg.OutputSuffix = DefaultOutputSuffix(cfg.Mode)
	}
	if log == nil {
		log = observe.NopLogger{}
	}
	return &Processor{store: store, cache: cache, naming: naming, cfg: cfg, log: log, clock: time.Now}, nil
}

// Process runs one exposure to a terminal state. All conditions short of the
// fatal startup errors collapse into an Outcome; Process never aborts the
// batch.
func (p *Processor) Process(ctx context.Context, rec ExposureRecord) Outcome {
	started := p.clock()
	out := p.process(ctx, rec)
	out.Elapsed = p.clock().Sub(started)
	return out
}

func (p *Processor) process(ctx context.Context, rec ExposureRecord) Outcome {
	out := Outcome{Seq: rec.Seq, State: StatePending}

	variants := rec.Variants
	if len(variants) == 0 {
		variants = p.cfg.Variants
	}
	suffix, inputKey, found, err := p.findInput(ctx, rec.Seq, variants)
	if err != nil {
		return p.fail(out, "probe input", err)
	}
	if !found {
		out.State = StateSkippedNoInput
		out.Reason = fmt.Sprintf("no input among variants %v", variants)
		p.log.Warn("input not found, skipping exposure", "seq", rec.Seq, "variants", variants)
		return out
	}

	outKey := p.naming.FramePath(rec.Seq, p.cfg.OutputSuffix)
	exists, err := p.store.Exists(ctx, outKey)
	if err != nil {
		return p.fail(out, "probe output", err)
	}
	if exists && !p.cfg.Clobber {
		out.State = StateSkippedExists
		out.Reason = fmt.Sprintf("output %s already exists", outKey)
		p.log.Warn("output exists and clobber is off, skipping exposure", "seq", rec.Seq, "output", outKey)
		return out
	}

	set, err := p.loadSet(ctx, rec.Seq, suffix, inputKey)
	if err != nil {
		return p.fail(out, "load input set", err)
	}

	product, ok, err := p.cache.Resolve(ctx, p.cfg.Mode, rec.CalibSeq)
	if err != nil {
		return p.fail(out, "resolve calibration", err)
	}
	if !ok {
		out.State = StateSkippedNoCalib
		out.Reason = fmt.Sprintf("no %s calibration for id %d", p.cfg.Mode, rec.CalibSeq)
		p.log.Warn("calibration unavailable, skipping exposure",
			"seq", rec.Seq, "kind", p.cfg.Mode, "calib_seq", rec.CalibSeq)
		return out
	}
	out.CalFile = product.Path

	if err := p.apply(set, product, rec); err != nil {
		if errors.Is(err, grid.ErrNoOverlap) {
			out.State = StateSkippedNoOverlap
			out.Reason = err.Error()
			p.log.Warn("sampling grids do not overlap, skipping exposure", "seq", rec.Seq, "error", err)
			return out
		}
		return p.fail(out, "apply correction", err)
	}

	if err := p.writeOutputs(ctx, rec.Seq, set); err != nil {
		return p.fail(out, "write outputs", err)
	}
	out.State = StateCorrected
	p.log.Info("exposure corrected",
		"seq", rec.Seq, "mode", p.cfg.Mode, "output", outKey, "calibration", product.Path)
	return out
}

func (p *Processor) fail(out Outcome, op string, err error) Outcome {
	out.State = StateFailed
	out.Reason = fmt.Sprintf("%s: %v", op, err)
	p.log.Error("exposure failed", "seq", out.Seq, "op", op, "error", err)
	return out
}

func (p *Processor) findInput(ctx context.Context, seq int, variants []string) (suffix, key string, found bool, err error) {
	for _, s := range variants {
		k := p.naming.FramePath(seq, s)
		ok, err := p.store.Exists(ctx, k)
		if err != nil {
			return "", "", false, fmt.Errorf("probe %s: %w", k, err)
		}
		if ok {
			return s, k, true, nil
		}
	}
	return "", "", false, nil
}

// loadSet reads the signal frame and its side arrays. Missing variance or
// mask synthesize placeholders with a warning; auxiliary sky/object frames
// join the set only when present.
func (p *Processor) loadSet(ctx context.Context, seq int, suffix, inputKey string) (*frame.Set, error) {
	sci, err := p.store.Read(ctx, inputKey)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", inputKey, err)
	}
	set := &frame.Set{Sci: sci}

	varKey := p.naming.FramePath(seq, p.naming.SideSuffix(suffix, calib.SideVar))
	ok, err := p.store.Exists(ctx, varKey)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", varKey, err)
	}
	if ok {
		if set.Var, err = p.store.Read(ctx, varKey); err != nil {
			return nil, fmt.Errorf("read %s: %w", varKey, err)
		}
	} else {
		set.Var = placeholderVariance(sci.Shape)
		p.log.Warn("variance missing, synthesizing placeholder", "seq", seq, "key", varKey)
	}

	maskKey := p.naming.FramePath(seq, p.naming.SideSuffix(suffix, calib.SideMask))
	ok, err = p.store.Exists(ctx, maskKey)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", maskKey, err)
	}
	if ok {
		if set.Mask, err = p.store.ReadMask(ctx, maskKey); err != nil {
			return nil, fmt.Errorf("read %s: %w", maskKey, err)
		}
	} else {
		set.Mask = placeholderMask(sci.Shape)
		p.log.Warn("mask missing, synthesizing placeholder", "seq", seq, "key", maskKey)
	}

	for _, side := range []calib.Side{calib.SideSky, calib.SideObj} {
		auxKey := p.naming.FramePath(seq, p.naming.SideSuffix(suffix, side))
		ok, err := p.store.Exists(ctx, auxKey)
		if err != nil {
			return nil, fmt.Errorf("probe %s: %w", auxKey, err)
		}
		if !ok {
			continue
		}
		f, err := p.store.Read(ctx, auxKey)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", auxKey, err)
		}
		set.Aux = append(set.Aux, frame.Companion{Role: string(side), Frame: f})
	}

	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", inputKey, err)
	}
	return set, nil
}

func placeholderVariance(shape frame.Shape) *frame.Frame {
	f := frame.New(shape)
	f.Data[0] = PlaceholderSpike
	f.Header.AddHistory("placeholder variance synthesized")
	return f
}

func placeholderMask(shape frame.Shape) *frame.MaskFrame {
	m := frame.NewMask(shape)
	m.Data[0] = int32(PlaceholderSpike)
	m.Header.AddHistory("placeholder mask synthesized")
	return m
}

func (p *Processor) apply(set *frame.Set, product calib.Product, rec ExposureRecord) error {
	switch p.cfg.Mode {
	case calib.KindDark:
		opts := correct.DarkOptions{ScienceExpTime: rec.ExpTime}
		if opts.ScienceExpTime <= 0 {
			if v, ok := set.Sci.Header.Float(frame.KeyExpTime); ok {
				opts.ScienceExpTime = v
			}
		}
		if product.Data != nil {
			if v, ok := product.Data.Header.Float(frame.KeyExpTime); ok {
				opts.DarkExpTime = v
			}
		}
		_, err := correct.ApplyDark(set, product, opts, p.log)
		return err
	case calib.KindResponse:
		_, err := correct.ApplyResponse(set, product, p.log)
		return err
	}
	return fmt.Errorf("unknown correction mode %q", p.cfg.Mode)
}

// writeOutputs persists the corrected set under the output suffix. With
// clobber on, each target is deleted first; the store's create-only writes
// otherwise guarantee nothing is overwritten.
func (p *Processor) writeOutputs(ctx context.Context, seq int, set *frame.Set) error {
	outSuffix := p.cfg.OutputSuffix
	if err := p.writeFrame(ctx, p.naming.FramePath(seq, outSuffix), set.Sci); err != nil {
		return err
	}
	varKey := p.naming.FramePath(seq, p.naming.SideSuffix(outSuffix, calib.SideVar))
	if err := p.writeFrame(ctx, varKey, set.Var); err != nil {
		return err
	}
	maskKey := p.naming.FramePath(seq, p.naming.SideSuffix(outSuffix, calib.SideMask))
	if p.cfg.Clobber {
		if _, err := p.store.Delete(ctx, maskKey); err != nil {
			return fmt.Errorf("clobber %s: %w", maskKey, err)
		}
	}
	if err := p.store.WriteMask(ctx, maskKey, set.Mask); err != nil {
		return fmt.Errorf("write %s: %w", maskKey, err)
	}
	for _, c := range set.Aux {
		key := p.naming.FramePath(seq, p.naming.SideSuffix(outSuffix, calib.Side(c.Role)))
		if err := p.writeFrame(ctx, key, c.Frame); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) writeFrame(ctx context.Context, key string, f *frame.Frame) error {
	if p.cfg.Clobber {
		if _, err := p.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("clobber %s: %w", key, err)
		}
	}
	if err := p.store.Write(ctx, key, f); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
