package calib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
)

type captureLogger struct {
	infos []string
	warns []string
}

func (l *captureLogger) Debug(string, ...any)      {}
func (l *captureLogger) Info(msg string, _ ...any) { l.infos = append(l.infos, msg) }
func (l *captureLogger) Warn(msg string, _ ...any) { l.warns = append(l.warns, msg) }
func (l *captureLogger) Error(string, ...any)      {}

type countingBuilder struct {
	inner Builder
	calls int
	last  BuildRequest
}

func (b *countingBuilder) Build(ctx context.Context, req BuildRequest) error {
	b.calls++
	b.last = req
	if b.inner == nil {
		return nil
	}
	return b.inner.Build(ctx, req)
}

type failBuilder struct{ err error }

func (b failBuilder) Build(context.Context, BuildRequest) error { return b.err }

func testFrame(t *testing.T, fill float64) *frame.Frame {
	t.Helper()
	f := frame.New(frame.Shape{Slices: 1, X: 2, Lambda: 3})
	for i := range f.Data {
		f.Data[i] = fill + float64(i)
	}
	return f
}

func seedInput(t *testing.T, ctx context.Context, store framestore.Store, n Naming, seq int, suffix string, withSides bool) {
	t.Helper()
	if err := store.Write(ctx, n.FramePath(seq, suffix), testFrame(t, 10)); err != nil {
		t.Fatalf("seed input: %v", err)
	}
	if !withSides {
		return
	}
	if err := store.Write(ctx, n.FramePath(seq, n.SideSuffix(suffix, SideVar)), testFrame(t, 100)); err != nil {
		t.Fatalf("seed var side: %v", err)
	}
	mask := frame.NewMask(frame.Shape{Slices: 1, X: 2, Lambda: 3})
	mask.Data[0] = 8
	if err := store.WriteMask(ctx, n.FramePath(seq, n.SideSuffix(suffix, SideMask)), mask); err != nil {
		t.Fatalf("seed mask side: %v", err)
	}
}

func TestResolveSeqNone(t *testing.T) {
	store := framestore.NewMemory()
	builder := &countingBuilder{}
	cache := NewCache(store, Naming{Prefix: "kb"}, builder, nil, nil)

	p, ok, err := cache.Resolve(context.Background(), KindDark, SeqNone)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok {
		t.Fatalf("expected no product for the no-calibration sentinel, got %+v", p)
	}
	if builder.calls != 0 {
		t.Fatalf("builder invoked %d times for the sentinel", builder.calls)
	}
}

func TestResolveBuildsOnceAndMemoizes(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	builder := &countingBuilder{inner: &CopyBuilder{Store: store}}
	log := &captureLogger{}
	cache := NewCache(store, n, builder, nil, log)
	seedInput(t, ctx, store, n, 42, "_icube", false)

	p, ok, err := cache.Resolve(ctx, KindDark, 42)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if !ok {
		t.Fatal("expected a product after building")
	}
	if p.Path != "kb00042_mdark.frm" {
		t.Fatalf("unexpected master path %q", p.Path)
	}
	if builder.calls != 1 {
		t.Fatalf("builder calls = %d, want 1", builder.calls)
	}
	if len(log.infos) == 0 {
		t.Fatal("expected a build log line")
	}

	// Deleting the persisted master proves the second resolve answers from
	// the in-run memo without touching the store.
	if _, err := store.Delete(ctx, p.Path); err != nil {
		t.Fatalf("delete master: %v", err)
	}
	again, ok, err := cache.Resolve(ctx, KindDark, 42)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !ok || again.Path != p.Path {
		t.Fatalf("memoized resolve = (%+v, %v)", again, ok)
	}
	if builder.calls != 1 {
		t.Fatalf("builder re-invoked, calls = %d", builder.calls)
	}
}

func TestResolveExistingMasterNotRebuilt(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	builder := &countingBuilder{}
	cache := NewCache(store, n, builder, nil, nil)

	master := testFrame(t, 1)
	master.Header.Set(frame.KeySourceSeq, 42)
	master.Header.Set(frame.KeyBuiltAt, "2026-03-01T12:00:00Z")
	if err := store.Write(ctx, n.MasterPath(KindDark, 42), master); err != nil {
		t.Fatalf("seed master: %v", err)
	}

	p, ok, err := cache.Resolve(ctx, KindDark, 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ok {
		t.Fatal("expected the persisted master to resolve")
	}
	if builder.calls != 0 {
		t.Fatalf("builder invoked %d times for an existing master", builder.calls)
	}
	if p.Source != "kb00042" {
		t.Fatalf("source = %q, want kb00042", p.Source)
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !p.BuiltAt.Equal(want) {
		t.Fatalf("built at = %v, want %v", p.BuiltAt, want)
	}
}

func TestResolveMissingInputWarns(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	builder := &countingBuilder{}
	log := &captureLogger{}
	cache := NewCache(store, Naming{Prefix: "kb"}, builder, nil, log)

	_, ok, err := cache.Resolve(ctx, KindDark, 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ok {
		t.Fatal("expected a miss with no calibration input present")
	}
	if builder.calls != 0 {
		t.Fatalf("builder invoked %d times with no input", builder.calls)
	}
	if len(log.warns) != 1 {
		t.Fatalf("warnings = %v, want exactly one", log.warns)
	}

	// The miss is memoized for the run.
	if _, ok, err := cache.Resolve(ctx, KindDark, 7); err != nil || ok {
		t.Fatalf("memoized miss = (%v, %v)", ok, err)
	}
	if len(log.warns) != 1 {
		t.Fatalf("miss warned again: %v", log.warns)
	}
}

func TestResolveVariantPreference(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	builder := &countingBuilder{inner: &CopyBuilder{Store: store}}
	cache := NewCache(store, n, builder, nil, nil)
	seedInput(t, ctx, store, n, 5, "_int", false)
	seedInput(t, ctx, store, n, 5, "_icube", false)

	if _, ok, err := cache.Resolve(ctx, KindDark, 5); err != nil || !ok {
		t.Fatalf("resolve = (%v, %v)", ok, err)
	}
	if builder.last.InputKey != n.FramePath(5, "_icube") {
		t.Fatalf("picked %q, want the more processed _icube variant", builder.last.InputKey)
	}
}

func TestResolveBuilderFailureNotMemoized(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	cause := errors.New("scratch space full")
	builder := &countingBuilder{inner: failBuilder{err: cause}}
	cache := NewCache(store, n, builder, nil, nil)
	seedInput(t, ctx, store, n, 9, "_icube", false)

	_, _, err := cache.Resolve(ctx, KindDark, 9)
	var nb *NotBuiltError
	if !errors.As(err, &nb) {
		t.Fatalf("error = %v, want NotBuiltError", err)
	}
	if nb.Kind != KindDark || nb.Seq != 9 {
		t.Fatalf("error fields = %+v", nb)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}

	if _, _, err := cache.Resolve(ctx, KindDark, 9); err == nil {
		t.Fatal("expected the retry to fail again")
	}
	if builder.calls != 2 {
		t.Fatalf("builder calls = %d, want 2 (failures are retried)", builder.calls)
	}
}

func TestResolveLoadsSideFiles(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	cache := NewCache(store, n, &CopyBuilder{Store: store}, nil, nil)
	seedInput(t, ctx, store, n, 11, "_icube", true)

	p, ok, err := cache.Resolve(ctx, KindResponse, 11)
	if err != nil || !ok {
		t.Fatalf("resolve = (%v, %v)", ok, err)
	}
	if p.Var == nil || p.Var.Data[0] != 100 {
		t.Fatalf("variance side not loaded: %+v", p.Var)
	}
	if p.Mask == nil || p.Mask.Data[0] != 8 {
		t.Fatalf("mask side not loaded: %+v", p.Mask)
	}
}

func TestResolveWithoutSideFiles(t *testing.T) {
	ctx := context.Background()
	store := framestore.NewMemory()
	n := Naming{Prefix: "kb"}
	cache := NewCache(store, n, &CopyBuilder{Store: store}, nil, nil)
	seedInput(t, ctx, store, n, 12, "_icube", false)

	p, ok, err := cache.Resolve(ctx, KindDark, 12)
	if err != nil || !ok {
		t.Fatalf("resolve = (%v, %v)", ok, err)
	}
	if p.Var != nil || p.Mask != nil {
		t.Fatalf("expected nil sides, got var=%v mask=%v", p.Var, p.Mask)
	}
}
