package calib

import (
	"context"
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
)

// BuildRequest names everything a builder needs to construct one master
// product. Input keys point at the located raw calibration product; side keys
// may reference keys that do not exist, builders probe before reading. Output
// keys are the canonical master locations the cache will load from.
type BuildRequest struct {
	Kind Kind
	Seq  int

	InputKey     string
	InputVarKey  string
	InputMaskKey string

	OutputKey     string
	OutputVarKey  string
	OutputMaskKey string
}

// Builder constructs and persists a master calibration product. The cache
// never inspects what a builder wrote; it reloads through the store.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) error
}

// CopyBuilder persists the located calibration input unchanged as the master
// product, stamping source sequence and build time. It stands in for the full
// master recipe (frame stacking, scaling, outlier rejection), which belongs
// to an earlier reduction stage.
type CopyBuilder struct {
	Store framestore.Store
	Now   func() time.Time
}

var _ Builder = (*CopyBuilder)(nil)

func (b *CopyBuilder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *CopyBuilder) Build(ctx context.Context, req BuildRequest) error {
	f, err := b.Store.Read(ctx, req.InputKey)
	if err != nil {
		return fmt.Errorf("read calibration input %s: %w", req.InputKey, err)
	}
	f.Header.Set(frame.KeySourceSeq, req.Seq)
	f.Header.Set(frame.KeyBuiltAt, b.now().UTC().Format(time.RFC3339))
	f.Header.AddHistory(fmt.Sprintf("%s master adopted from %s", req.Kind, req.InputKey))
	if err := b.Store.Write(ctx, req.OutputKey, f); err != nil {
		return fmt.Errorf("write master %s: %w", req.OutputKey, err)
	}
	if err := b.copySide(ctx, req.InputVarKey, req.OutputVarKey); err != nil {
		return err
	}
	return b.copyMaskSide(ctx, req.InputMaskKey, req.OutputMaskKey)
}

func (b *CopyBuilder) copySide(ctx context.Context, inKey, outKey string) error {
	if inKey == "" || outKey == "" {
		return nil
	}
	ok, err := b.Store.Exists(ctx, inKey)
	if err != nil {
		return fmt.Errorf("probe side %s: %w", inKey, err)
	}
	if !ok {
		return nil
	}
	f, err := b.Store.Read(ctx, inKey)
	if err != nil {
		return fmt.Errorf("read side %s: %w", inKey, err)
	}
	if err := b.Store.Write(ctx, outKey, f); err != nil {
		return fmt.Errorf("write side %s: %w", outKey, err)
	}
	return nil
}

func (b *CopyBuilder) copyMaskSide(ctx context.Context, inKey, outKey string) error {
	if inKey == "" || outKey == "" {
		return nil
	}
	ok, err := b.Store.Exists(ctx, inKey)
	if err != nil {
		return fmt.Errorf("probe side %s: %w", inKey, err)
	}
	if !ok {
		return nil
	}
	m, err := b.Store.ReadMask(ctx, inKey)
	if err != nil {
		return fmt.Errorf("read side %s: %w", inKey, err)
	}
	if err := b.Store.WriteMask(ctx, outKey, m); err != nil {
		return fmt.Errorf("write side %s: %w", outKey, err)
	}
	return nil
}
