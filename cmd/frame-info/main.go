// Command frame-info prints the shape, header cards, history, and sampling
// grid of stored frame containers.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/namrataroy/kderp/internal/frame"
	"github.com/namrataroy/kderp/internal/framestore"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(os.Args[1:], os.Stdout, os.Stderr))
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("frame-info", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := fs.String("data-dir", ".", "frame store root directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	keys := fs.Args()
	if len(keys) == 0 {
		fmt.Fprintln(stderr, "usage: frame-info [-data-dir dir] key...")
		return 2
	}

	store, err := framestore.NewFilesystem(*dataDir)
	if err != nil {
		fmt.Fprintf(stderr, "open store: %v\n", err)
		return 1
	}
	ctx := context.Background()
	for _, key := range keys {
		f, err := store.Read(ctx, key)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", key, err)
			return 1
		}
		printFrame(stdout, key, f)
	}
	return 0
}

func printFrame(w io.Writer, key string, f *frame.Frame) {
	fmt.Fprintf(w, "%s: shape %s\n", key, f.Shape)
	if g, ok := f.Header.Grid(); ok {
		fmt.Fprintf(w, "  grid origin %g step %g len %d\n", g.Origin, g.Step, g.Len)
	}
	for _, c := range f.Header.Cards {
		fmt.Fprintf(w, "  %-8s %v\n", c.Key, c.Value)
	}
	for _, line := range f.Header.History() {
		fmt.Fprintf(w, "  HISTORY %s\n", line)
	}
}
