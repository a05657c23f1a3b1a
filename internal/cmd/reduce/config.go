// Package reduce wires the correction-stage batch driver: configuration from
// environment and flags, store and journal selection, observability, and the
// pipeline runner.
package reduce

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the batch driver configuration. Environment variables fill the
// defaults; flags override. DataDir, when set, forces the filesystem store
// driver; otherwise the store factory selects one from its own environment.
type Config struct {
	DataDir      string `env:"KDERP_DATA_DIR"`
	CalibDir     string `env:"KDERP_CALIB_DIR"`
	Prefix       string `env:"KDERP_FILE_PREFIX" envDefault:"kb"`
	Mode         string `env:"KDERP_MODE" envDefault:"dark"`
	LinkTable    string `env:"KDERP_LINK_TABLE"`
	Manifest     string `env:"KDERP_MANIFEST"`
	Exposures    string `env:"KDERP_EXPOSURES"`
	Calibrations string `env:"KDERP_CALIBRATIONS"`
	OutputSuffix string `env:"KDERP_OUTPUT_SUFFIX"`
	Clobber      bool   `env:"KDERP_CLOBBER"`
	Verbose      int    `env:"KDERP_VERBOSE" envDefault:"1"`
	Display      int    `env:"KDERP_DISPLAY"`

	JournalDriver string `env:"KDERP_JOURNAL_DRIVER"`
	JournalPath   string `env:"KDERP_JOURNAL_SQLITE_PATH"`
	JournalDSN    string `env:"KDERP_JOURNAL_POSTGRES_DSN"`

	MetricsAddr string `env:"KDERP_METRICS_ADDR"`
	TracePath   string `env:"KDERP_TRACE_PATH"`
}

// ParseConfig reads the environment into a Config and binds flags over the
// parsed values, so flags override environment which overrides defaults.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "frame store root directory (bypasses the store factory)")
	fs.StringVar(&cfg.CalibDir, "calib-dir", cfg.CalibDir, "store key prefix holding calibration products")
	fs.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "instrument file prefix")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "correction mode: dark or response")
	fs.StringVar(&cfg.LinkTable, "link", cfg.LinkTable, "path to an exposure/calibration link table")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "path to a yaml batch manifest")
	fs.StringVar(&cfg.Exposures, "exposures", cfg.Exposures, "comma-separated science sequence numbers")
	fs.StringVar(&cfg.Calibrations, "calibrations", cfg.Calibrations, "comma-separated calibration sequence numbers")
	fs.StringVar(&cfg.OutputSuffix, "output-suffix", cfg.OutputSuffix, "corrected product suffix (default per mode)")
	fs.BoolVar(&cfg.Clobber, "clobber", cfg.Clobber, "overwrite existing outputs")
	fs.IntVar(&cfg.Verbose, "verbose", cfg.Verbose, "log level: 0 errors, 1 info, 2 debug")
	fs.IntVar(&cfg.Display, "display", cfg.Display, "display level passed through to downstream tooling")
	fs.StringVar(&cfg.JournalDriver, "journal", cfg.JournalDriver, "journal driver: memory, sqlite, postgres or none")
	fs.StringVar(&cfg.JournalPath, "journal-path", cfg.JournalPath, "sqlite journal database file")
	fs.StringVar(&cfg.JournalDSN, "journal-dsn", cfg.JournalDSN, "postgres journal connection string")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "listen address serving /metrics and /debug/vars")
	fs.StringVar(&cfg.TracePath, "trace", cfg.TracePath, "write span records as json lines to this file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseIntList(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("sequence number %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
