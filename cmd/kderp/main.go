// Command kderp runs one calibration-correction batch over a set of science
// exposures: dark subtraction or relative-response division with
// skip-and-continue semantics.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/namrataroy/kderp/internal/cmd/reduce"
)

func main() {
	cfg, err := reduce.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := reduce.Run(ctx, cfg); err != nil {
		log.Fatalf("reduction failed: %v", err)
	}
}
