package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/census"
	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/gazetteer"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/region"
	"github.com/sells-group/demomap/internal/store"
	"github.com/sells-group/demomap/internal/synth"
	"github.com/sells-group/demomap/internal/tiger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download ACS demographics and boundaries",
	Long:  "Commands that query the Census Bureau ACS 5-year API and boundary services for the configured region.",
}

// -- fetch tracts --

var fetchTractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Fetch census tract demographics with boundaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		reg, err := initRegion()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")
		out = outputPath(out)
		noClean, _ := cmd.Flags().GetBool("no-clean")

		return trackRun(ctx, st, "fetch tracts", args, func() (int, string, error) {
			client := initCensus(initFetcher(), st)
			recs, err := fetchTracts(ctx, client, reg, !noClean)
			if err != nil {
				return 0, "", err
			}
			if err := dataset.WriteFile(out, recs, model.KindTract); err != nil {
				return 0, "", err
			}
			return len(recs), out, nil
		})
	},
}

func fetchTracts(ctx context.Context, client *census.Client, reg *region.Region, clean bool) ([]*model.Record, error) {
	log := zap.L().With(zap.String("command", "fetch tracts"))

	res, err := client.FetchTracts(ctx, reg.Counties())
	if err != nil {
		return nil, eris.Wrap(err, "fetch tracts")
	}
	if len(res.Failed) > 0 {
		log.Warn("counties without demographics", zap.Strings("counties", res.Failed))
	}

	recs := census.Assemble(res.Records, res.Boundaries)
	if clean {
		recs = dataset.Clean(recs, dataset.TractRules)
	}
	if len(recs) == 0 {
		return nil, eris.New("fetch tracts: no tracts with boundaries")
	}

	log.Info("tracts assembled",
		zap.Int("fetched", len(res.Records)),
		zap.Int("boundaries", len(res.Boundaries)),
		zap.Int("kept", len(recs)),
	)
	return recs, nil
}

// -- fetch zctas --

var fetchZCTAsCmd = &cobra.Command{
	Use:   "zctas",
	Short: "Fetch ZIP code tabulation area demographics",
	Long: `Queries ACS estimates for every ZCTA whose prefix belongs to the region.
ZIPs are located through the gazetteer when it has been loaded.
With --fallback, the synthetic dataset is written if the API returns nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		reg, err := initRegion()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")
		out = outputPath(out)
		fallback, _ := cmd.Flags().GetBool("fallback")
		boundaries, _ := cmd.Flags().GetBool("boundaries")

		return trackRun(ctx, st, "fetch zctas", args, func() (int, string, error) {
			f := initFetcher()
			recs, err := fetchZCTAs(ctx, initCensus(f, st), st, reg)
			if err != nil || len(recs) == 0 {
				if !fallback {
					if err == nil {
						err = eris.New("fetch zctas: no ZCTAs in region")
					}
					return 0, "", err
				}
				zap.L().Warn("census unavailable, writing synthetic dataset", zap.Error(err))
				recs = synth.Generate(cfg.Synth.Seed, synth.Profiles)
			}

			if boundaries {
				if err := attachZCTABoundaries(ctx, tigerDownloader(f), recs); err != nil {
					return 0, "", err
				}
			}

			if err := dataset.WriteFile(out, recs, model.KindZIP); err != nil {
				return 0, "", err
			}
			return len(recs), out, nil
		})
	},
}

func fetchZCTAs(ctx context.Context, client *census.Client, st store.Store, reg *region.Region) ([]*model.Record, error) {
	prefixes := make(map[string]bool)
	for _, p := range reg.Prefixes() {
		prefixes[p] = true
	}
	recs, err := client.ZCTAs(ctx, func(zip string) bool { return prefixes[zip[:3]] })
	if err != nil {
		return nil, err
	}

	n, err := st.CountPostalCodes(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		zap.L().Warn("gazetteer empty, ZIPs left unlocated; run `demomap gazetteer load`")
		return recs, nil
	}
	return dataset.Geocode(ctx, recs, gazetteer.New(st, 0))
}

func attachZCTABoundaries(ctx context.Context, d *tiger.Downloader, recs []*model.Record) error {
	want := make(map[string]*model.Record, len(recs))
	for _, r := range recs {
		want[r.ID] = r
	}
	bounds, err := tiger.ZCTABoundaries(ctx, d, cfg.Tiger.BaseURL, cfg.Tiger.Year, func(zip string) bool {
		_, ok := want[zip]
		return ok
	})
	if err != nil {
		return eris.Wrap(err, "fetch zctas: boundaries")
	}
	for _, b := range bounds {
		census.Attach(want[b.ID], b)
	}
	zap.L().Info("zcta boundaries attached", zap.Int("matched", len(bounds)), zap.Int("records", len(recs)))
	return nil
}

func init() {
	fetchTractsCmd.Flags().String("out", "tract_demographics.csv", "output CSV")
	fetchTractsCmd.Flags().Bool("no-clean", false, "keep tracts outside the sanity thresholds")

	fetchZCTAsCmd.Flags().String("out", "zip_demographics.csv", "output CSV")
	fetchZCTAsCmd.Flags().Bool("fallback", false, "write synthetic data when the API returns nothing")
	fetchZCTAsCmd.Flags().Bool("boundaries", false, "attach TIGER/Line ZCTA outlines")

	fetchCmd.AddCommand(fetchTractsCmd)
	fetchCmd.AddCommand(fetchZCTAsCmd)
	rootCmd.AddCommand(fetchCmd)
}
