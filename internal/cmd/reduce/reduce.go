package reduce

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/namrataroy/kderp/internal/calib"
	"github.com/namrataroy/kderp/internal/framestore"
	"github.com/namrataroy/kderp/internal/journal"
	"github.com/namrataroy/kderp/internal/observe"
	"github.com/namrataroy/kderp/internal/pipeline"
)

// Run executes one correction batch with the given configuration. Only
// configuration, input-list, and wiring failures are fatal; per-exposure
// problems are absorbed by the runner's skip-and-continue policy.
func Run(ctx context.Context, cfg Config) error {
	log := newLogger(cfg.Verbose)
	log.Debug("configuration loaded",
		"mode", cfg.Mode, "data_dir", cfg.DataDir, "calib_dir", cfg.CalibDir,
		"clobber", cfg.Clobber, "display", cfg.Display)

	recs, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open frame store: %w", err)
	}

	jnl, err := openJournal(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if err := jnl.Close(); err != nil {
			log.Warn("close journal", "error", err)
		}
	}()

	prom := observe.NewPromRecorder()
	metrics := multiMetrics{prom, observe.NewExpvarRecorder("")}
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, prom.Registry(), log)
		defer stop()
	}

	var tracer observe.Tracer = observe.NopTracer{}
	if cfg.TracePath != "" {
		f, err := os.Create(cfg.TracePath)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Warn("close trace file", "error", err)
			}
		}()
		tracer = observe.NewJSONTracer(f)
	}

	naming := calib.Naming{Prefix: cfg.Prefix}
	calNaming := calib.Naming{Dir: cfg.CalibDir, Prefix: cfg.Prefix}
	cache := calib.NewCache(store, calNaming, &calib.CopyBuilder{Store: store}, nil, log)
	proc, err := pipeline.NewProcessor(store, cache, naming, pipeline.ProcessorConfig{
		Mode:         calib.Kind(cfg.Mode),
		OutputSuffix: cfg.OutputSuffix,
		Clobber:      cfg.Clobber,
	}, log)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(proc, pipeline.RunnerOptions{
		Log:     log,
		Metrics: metrics,
		Tracer:  tracer,
		Audit:   observe.LoggerAudit{Log: log},
		Journal: jnl,
	})
	_, err = runner.Run(ctx, recs)
	return err
}

// loadRecords resolves the exposure association from whichever input form the
// configuration selects: manifest, link table, or explicit parallel lists.
func loadRecords(cfg Config) ([]pipeline.ExposureRecord, error) {
	var (
		recs []pipeline.ExposureRecord
		err  error
	)
	switch {
	case cfg.Manifest != "":
		f, openErr := os.Open(cfg.Manifest)
		if openErr != nil {
			return nil, fmt.Errorf("open manifest: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		recs, err = pipeline.ParseManifest(f)
	case cfg.LinkTable != "":
		f, openErr := os.Open(cfg.LinkTable)
		if openErr != nil {
			return nil, fmt.Errorf("open link table: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		recs, err = pipeline.ParseLinkTable(f)
	default:
		seqs, listErr := parseIntList(cfg.Exposures)
		if listErr != nil {
			return nil, fmt.Errorf("parse exposures: %w", listErr)
		}
		cals, listErr := parseIntList(cfg.Calibrations)
		if listErr != nil {
			return nil, fmt.Errorf("parse calibrations: %w", listErr)
		}
		recs, err = pipeline.FromLists(seqs, cals)
	}
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("no exposures selected")
	}
	return recs, nil
}

func openStore(ctx context.Context, cfg Config) (framestore.Store, error) {
	if cfg.DataDir != "" {
		return framestore.NewFilesystem(cfg.DataDir)
	}
	return framestore.Open(ctx)
}

func openJournal(ctx context.Context, cfg Config) (journal.Journal, error) {
	if cfg.JournalDriver == "" {
		return journal.Open(ctx)
	}
	switch journal.Driver(cfg.JournalDriver) {
	case journal.DriverMemory:
		return journal.NewMemory(), nil
	case journal.DriverSQLite:
		return journal.NewSQLite(cfg.JournalPath)
	case journal.DriverPostgres:
		return journal.NewPostgres(ctx, cfg.JournalDSN)
	case journal.DriverNone:
		return journal.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", cfg.JournalDriver)
	}
}

func newLogger(verbose int) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose <= 0:
		level = slog.LevelError
	case verbose >= 2:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// serveMetrics exposes the prometheus registry and the expvar page for the
// duration of the batch. The returned stop function shuts the listener down.
func serveMetrics(addr string, reg *prometheus.Registry, log observe.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("metrics listener stopped", "error", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
	return func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Warn("metrics shutdown", "error", err)
		}
	}
}

type multiMetrics []observe.MetricsRecorder

func (m multiMetrics) Observe(ctx context.Context, op string, success bool, d time.Duration) {
	for _, r := range m {
		r.Observe(ctx, op, success, d)
	}
}
