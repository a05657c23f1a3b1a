package calib

import (
	"context"
	"fmt"
	"time"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
	"github.com/namrataroy/kderp/internal/observe"
)

// DefaultVariants returns the candidate input suffixes tried when a master of
// the given kind has to be built, most processed first.
func DefaultVariants(kind Kind) []string {
	switch kind {
	case KindDark:
		return []string{"_icube", "_int"}
	case KindResponse:
		return []string{"_icubed", "_icube"}
	}
	return nil
}

// Cache resolves calibration sequence numbers to master products, building
// each at most once. Presence of the master key is the whole cache contract:
// no timestamps, no content hashes, no cross-process lock. The batch loop is
// strictly sequential, so Cache is not safe for concurrent use.
type Cache struct {
	store    framestore.Store
	naming   Naming
	builder  Builder
	variants []string
	log      observe.Logger

	resolved map[cacheKey]resolution
}

type cacheKey struct {
	kind Kind
	seq  int
}

type resolution struct {
	product Product
	ok      bool
}

// NewCache returns a cache over the given store and builder. An empty
// variants list falls back to DefaultVariants per kind; a nil logger is
// replaced with a no-op one.
func NewCache(store framestore.Store, naming Naming, builder Builder, variants []string, log observe.Logger) *Cache {
	if log == nil {
		log = observe.NopLogger{}
	}
	return &Cache{
		store:    store,
		naming:   naming,
		builder:  builder,
		variants: variants,
		log:      log,
		resolved: make(map[cacheKey]resolution),
	}
}

// Resolve returns the master product for (kind, seq). The boolean reports
// availability: SeqNone and a missing calibration input both yield
// (Product{}, false, nil), which callers treat as skip-with-warning. Errors
// are reserved for store failures and failed builds, and are not memoized.
func (c *Cache) Resolve(ctx context.Context, kind Kind, seq int) (Product, bool, error) {
	if seq == SeqNone {
		c.log.Debug("no calibration associated", "kind", kind)
		return Product{}, false, nil
	}
	key := cacheKey{kind: kind, seq: seq}
	if r, hit := c.resolved[key]; hit {
		return r.product, r.ok, nil
	}
	masterKey := c.naming.MasterPath(kind, seq)
	exists, err := c.store.Exists(ctx, masterKey)
	if err != nil {
		return Product{}, false, fmt.Errorf("probe master %s: %w", masterKey, err)
	}
	if !exists {
		built, err := c.build(ctx, kind, seq, masterKey)
		if err != nil {
			return Product{}, false, err
		}
		if !built {
			c.resolved[key] = resolution{}
			return Product{}, false, nil
		}
	}
	p, err := c.load(ctx, kind, seq, masterKey)
	if err != nil {
		return Product{}, false, err
	}
	c.resolved[key] = resolution{product: p, ok: true}
	return p, true, nil
}

// build locates the raw calibration input and hands it to the builder. The
// false return without error means no candidate input exists.
func (c *Cache) build(ctx context.Context, kind Kind, seq int, masterKey string) (bool, error) {
	suffix, inputKey, found, err := c.findInput(ctx, kind, seq)
	if err != nil {
		return false, err
	}
	if !found {
		c.log.Warn("calibration input not found, correction will be skipped",
			"kind", kind, "seq", seq, "frame", c.naming.FrameID(seq))
		return false, nil
	}
	req := BuildRequest{
		Kind:          kind,
		Seq:           seq,
		InputKey:      inputKey,
		InputVarKey:   c.naming.FramePath(seq, c.naming.SideSuffix(suffix, SideVar)),
		InputMaskKey:  c.naming.FramePath(seq, c.naming.SideSuffix(suffix, SideMask)),
		OutputKey:     masterKey,
		OutputVarKey:  c.naming.SidePath(masterKey, SideVar),
		OutputMaskKey: c.naming.SidePath(masterKey, SideMask),
	}
	if err := c.builder.Build(ctx, req); err != nil {
		return false, &NotBuiltError{Kind: kind, Seq: seq, Err: err}
	}
	c.log.Info("master calibration built",
		"kind", kind, "seq", seq, "input", inputKey, "master", masterKey)
	return true, nil
}

func (c *Cache) findInput(ctx context.Context, kind Kind, seq int) (suffix, key string, found bool, err error) {
	variants := c.variants
	if len(variants) == 0 {
		variants = DefaultVariants(kind)
	}
	for _, suffix := range variants {
		key := c.naming.FramePath(seq, suffix)
		ok, err := c.store.Exists(ctx, key)
		if err != nil {
			return "", "", false, fmt.Errorf("probe calibration input %s: %w", key, err)
		}
		if ok {
			return suffix, key, true, nil
		}
	}
	return "", "", false, nil
}

// load reads the master and its side files. Absent side files leave Var/Mask
// nil; provenance fields come from the master header.
func (c *Cache) load(ctx context.Context, kind Kind, seq int, masterKey string) (Product, error) {
	data, err := c.store.Read(ctx, masterKey)
	if err != nil {
		return Product{}, fmt.Errorf("load master %s: %w", masterKey, err)
	}
	p := Product{Kind: kind, Seq: seq, Path: masterKey, Data: data}
	varKey := c.naming.SidePath(masterKey, SideVar)
	if ok, err := c.store.Exists(ctx, varKey); err != nil {
		return Product{}, fmt.Errorf("probe master side %s: %w", varKey, err)
	} else if ok {
		if p.Var, err = c.store.Read(ctx, varKey); err != nil {
			return Product{}, fmt.Errorf("load master side %s: %w", varKey, err)
		}
	}
	maskKey := c.naming.SidePath(masterKey, SideMask)
	if ok, err := c.store.Exists(ctx, maskKey); err != nil {
		return Product{}, fmt.Errorf("probe master side %s: %w", maskKey, err)
	} else if ok {
		if p.Mask, err = c.store.ReadMask(ctx, maskKey); err != nil {
			return Product{}, fmt.Errorf("load master side %s: %w", maskKey, err)
		}
	}
	if n, ok := data.Header.Int(frame.KeySourceSeq); ok {
		p.Source = c.naming.FrameID(n)
	}
	if s, ok := data.Header.String(frame.KeyBuiltAt); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			p.BuiltAt = t
		}
	}
	return p, nil
}
