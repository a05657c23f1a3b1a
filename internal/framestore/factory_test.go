package framestore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/namrataroy/kderp/internal/frame"
)

func TestFactory_Memory(t *testing.T) {
	t.Setenv("KDERP_STORE_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver")
	}
}

func TestFactory_DefaultFilesystem(t *testing.T) {
	ctx := context.Background()
	_ = os.Unsetenv("KDERP_STORE_DRIVER") // explicitly ignore error
	dir := t.TempDir()
	t.Setenv("KDERP_STORE_FS_ROOT", dir)
	store, err := Open(ctx)
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("expected filesystem driver: %v %v", store, err)
	}
	if _, err := store.Read(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFactory_S3RequiresBucket(t *testing.T) {
	t.Setenv("KDERP_STORE_DRIVER", "s3")
	_ = os.Unsetenv("KDERP_STORE_S3_BUCKET") // ensure missing; ignore error
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error without bucket")
	}
}

func TestFactory_UnknownDriver(t *testing.T) {
	t.Setenv("KDERP_STORE_DRIVER", "carrier-pigeon")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestStoreInterfaceAcrossDrivers(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	for name, store := range map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
		"s3":     NewMockS3ForTests(),
	} {
		t.Run(name, func(t *testing.T) {
			f := frame.New(frame.Shape{Slices: 2, X: 2, Lambda: 3})
			f.Data[7] = 1.5
			if err := store.Write(ctx, "x/y.frm", f); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := store.Write(ctx, "x/y.frm", f); !errors.Is(err, ErrExists) {
				t.Fatalf("duplicate write: %v", err)
			}
			got, err := store.Read(ctx, "x/y.frm")
			if err != nil || got.Data[7] != 1.5 {
				t.Fatalf("read: %v %v", got, err)
			}
			ok, err := store.Exists(ctx, "x/y.frm")
			if err != nil || !ok {
				t.Fatalf("exists: %v %v", ok, err)
			}
			keys, err := store.List(ctx, "x/")
			if err != nil || len(keys) != 1 {
				t.Fatalf("list: %v %v", keys, err)
			}
			if ok, err := store.Delete(ctx, "x/y.frm"); err != nil || !ok {
				t.Fatalf("delete: %v %v", ok, err)
			}
		})
	}
}
