package main

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/demomap/internal/census"
	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/fetcher"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
	"github.com/sells-group/demomap/internal/tiger"
)

// responseTTL is how long cached Census responses stay fresh.
const responseTTL = 7 * 24 * time.Hour

func initFetcher() fetcher.Fetcher {
	limiters := fetcher.DefaultLimiters()
	if rps := cfg.Census.RequestsPerS; rps > 0 {
		limiters["api.census.gov"] = fetcher.NewAdaptiveLimiter(rate.Limit(rps), rps)
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:    time.Duration(cfg.Census.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Census.MaxRetries,
		Limiters:   limiters,
	})
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Gazetteer.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initRegion() (*region.Region, error) {
	return region.Load(cfg.Region.File)
}

func tigerDownloader(f fetcher.Fetcher) *tiger.Downloader {
	return &tiger.Downloader{Fetcher: f, CacheDir: cfg.Tiger.TempDir}
}

func initCensus(f fetcher.Fetcher, st store.Store) *census.Client {
	opts := []census.Option{
		census.WithBaseURL(cfg.Census.BaseURL),
		census.WithTigerWebURL(cfg.Census.TigerWebURL),
		census.WithYear(cfg.Census.Year),
		census.WithAPIKey(cfg.Census.APIKey),
		census.WithConcurrency(cfg.Census.Concurrency),
		census.WithBoundaryFallback(&tiger.TractSource{
			Downloader: tigerDownloader(f),
			BaseURL:    cfg.Tiger.BaseURL,
			Year:       cfg.Tiger.Year,
		}),
	}
	if st != nil {
		opts = append(opts, census.WithCache(st, responseTTL))
	}
	return census.NewClient(f, opts...)
}

// outputPath resolves name against the configured output directory unless
// it is already a path.
func outputPath(name string) string {
	if name == "" || filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(cfg.Paths.OutputDir, name)
}

func parseKind(s string) (model.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zip", "zcta", "":
		return model.KindZIP, nil
	case "tract", "tracts":
		return model.KindTract, nil
	default:
		return 0, eris.Errorf("unknown kind %q (want zip or tract)", s)
	}
}

// parseCaps reads "metric=value" pairs, e.g. "density=10000". The
// configured density cap applies when no caps are given.
func parseCaps(pairs []string, densityCap float64) (map[model.Metric]float64, error) {
	caps := make(map[model.Metric]float64)
	if densityCap > 0 {
		caps[model.MetricDensity] = densityCap
	}
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, eris.Errorf("invalid cap %q (want metric=value)", p)
		}
		m, err := model.ParseMetric(name)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid cap value %q", val)
		}
		caps[m] = v
	}
	return caps, nil
}

// trackRun records a command invocation in the run history. fn returns the
// number of rows produced and the output path. Failing to record a run never
// fails the command.
func trackRun(ctx context.Context, st store.Store, command string, args []string, fn func() (int, string, error)) error {
	log := zap.L().With(zap.String("command", command))

	var runID string
	if st != nil {
		run, err := st.CreateRun(ctx, command, strings.Join(args, " "))
		if err != nil {
			log.Warn("failed to record run", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	rows, output, runErr := fn()

	if runID != "" {
		if err := st.FinishRun(context.WithoutCancel(ctx), runID, rows, output, runErr); err != nil {
			log.Warn("failed to finish run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	log.Info("command complete", zap.Int("rows", rows), zap.String("output", output))
	return nil
}

// readRecords loads a dataset file, logging a short summary.
func readRecords(ctx context.Context, path string, kind model.Kind) ([]*model.Record, error) {
	recs, err := dataset.ReadFile(ctx, path, kind)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("read dataset", zap.String("path", path), zap.Int("records", len(recs)))
	return recs, nil
}
