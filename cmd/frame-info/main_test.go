package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
	"github.com/namrataroy/kderp/internal/grid"
)

func TestCLIPrintsFrameInfo(t *testing.T) {
	dir := t.TempDir()
	store, err := framestore.NewFilesystem(dir)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	f := frame.New(frame.Shape{Slices: 1, X: 2, Lambda: 4})
	f.Header.Set("XPOSURE", 60.0)
	f.Header.SetGrid(grid.Grid{Origin: 4000, Step: 1, Len: 4})
	f.Header.AddHistory("dark subtracted: kb00007_mdark.frm scale 2")
	if err := store.Write(context.Background(), "kb00020_icubed.frm", f); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := cli([]string{"-data-dir", dir, "kb00020_icubed.frm"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"kb00020_icubed.frm", "XPOSURE", "grid origin 4000", "HISTORY dark subtracted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCLIMissingKey(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := cli([]string{"-data-dir", t.TempDir(), "kb00099_icube.frm"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "kb00099_icube.frm") {
		t.Fatalf("stderr should name the key: %s", stderr.String())
	}
}

func TestCLIRequiresKeys(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-data-dir", t.TempDir()}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
}
