package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/gazetteer"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/synth"
	"github.com/sells-group/demomap/pkg/colorscale"
)

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// -- geocode --

var geocodeCmd = &cobra.Command{
	Use:   "geocode <input.csv>",
	Short: "Attach gazetteer coordinates to a ZIP dataset",
	Long:  "Looks up every ZIP in the gazetteer and attaches its point, city and county. ZIPs the gazetteer does not know are dropped.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")
		out = outputPath(out)

		return trackRun(ctx, st, "geocode", args, func() (int, string, error) {
			recs, err := readRecords(ctx, args[0], model.KindZIP)
			if err != nil {
				return 0, "", err
			}
			g := gazetteer.New(st, minutes(cfg.Gazetteer.MemoTTLMins))
			located, err := dataset.Geocode(ctx, recs, g)
			if err != nil {
				return 0, "", err
			}
			hits, misses := g.Hits()
			zap.L().Debug("gazetteer memo", zap.Uint64("hits", hits), zap.Uint64("misses", misses))

			if err := dataset.WriteFile(out, located, model.KindZIP); err != nil {
				return 0, "", err
			}
			return len(located), out, nil
		})
	},
}

// -- merge --

var mergeCmd = &cobra.Command{
	Use:   "merge <zips.csv> <demographics.csv>",
	Short: "Join a ZIP list with demographics and fill the gaps",
	Long: `Copies demographics onto the ZIP list by ZIP code, then fills missing
values from the county mean and the region's county defaults.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

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
		jitter, _ := cmd.Flags().GetBool("jitter")

		return trackRun(ctx, st, "merge", args, func() (int, string, error) {
			base, err := readRecords(ctx, args[0], model.KindZIP)
			if err != nil {
				return 0, "", err
			}
			demo, err := readRecords(ctx, args[1], model.KindZIP)
			if err != nil {
				return 0, "", err
			}

			merged, matched := dataset.Merge(base, demo)
			rng := synth.NewRand(cfg.Synth.Seed)
			if !jitter {
				rng = nil
			}
			rep := dataset.Impute(merged, reg, rng)

			zap.L().Info("merged datasets",
				zap.Int("zips", len(merged)),
				zap.Int("matched", matched),
				zap.Int("county_mean", rep.CountyMean),
				zap.Int("defaults", rep.Default),
				zap.Int("unfilled", rep.Unfilled),
			)

			if err := dataset.WriteFile(out, merged, model.KindZIP); err != nil {
				return 0, "", err
			}
			return len(merged), out, nil
		})
	},
}

// -- colorize --

var colorizeCmd = &cobra.Command{
	Use:   "colorize <input.csv>",
	Short: "Add a colour column for every metric",
	Long:  "Computes each metric's range over the whole dataset and writes the hex colour of every value next to it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")
		out = outputPath(out)
		kindName, _ := cmd.Flags().GetString("kind")
		familyName, _ := cmd.Flags().GetString("scale")
		capPairs, _ := cmd.Flags().GetStringSlice("cap")

		kind, err := parseKind(kindName)
		if err != nil {
			return err
		}
		if familyName == "" {
			familyName = cfg.Render.ScaleFamily
		}
		family, err := colorscale.ParseFamily(familyName)
		if err != nil {
			return err
		}
		caps, err := parseCaps(capPairs, cfg.Render.DensityCap)
		if err != nil {
			return err
		}

		return trackRun(ctx, st, "colorize", args, func() (int, string, error) {
			recs, err := readRecords(ctx, args[0], kind)
			if err != nil {
				return 0, "", err
			}
			if len(recs) == 0 {
				return 0, "", eris.Errorf("colorize: %s has no records", args[0])
			}
			if _, err := dataset.Colorize(recs, family, caps); err != nil {
				return 0, "", err
			}
			formatSummary(os.Stdout, dataset.Summarize(recs))

			if err := dataset.WriteFile(out, recs, kind); err != nil {
				return 0, "", err
			}
			return len(recs), out, nil
		})
	},
}

// formatSummary writes one line of statistics per metric.
func formatSummary(out io.Writer, sums []dataset.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "METRIC\tCOUNT\tMIN\tMAX\tMEAN\tSTDDEV")
	for _, s := range sums {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\t%.1f\t%.1f\n",
			s.Metric.Label(), s.Count, s.Min, s.Max, s.Mean, s.StdDev)
	}
	_ = w.Flush()
}

func init() {
	geocodeCmd.Flags().String("out", "zip_located.csv", "output CSV")
	rootCmd.AddCommand(geocodeCmd)

	mergeCmd.Flags().String("out", "zip_merged.csv", "output CSV")
	mergeCmd.Flags().Bool("jitter", false, "vary county defaults with the seeded generator")
	rootCmd.AddCommand(mergeCmd)

	colorizeCmd.Flags().String("out", "colored.csv", "output CSV")
	colorizeCmd.Flags().String("kind", "zip", "dataset kind: zip or tract")
	colorizeCmd.Flags().String("scale", "", "scale family: classic, contrast, linear3, strong (default from config)")
	colorizeCmd.Flags().StringSlice("cap", nil, "cap a metric's range, e.g. density=10000")
	rootCmd.AddCommand(colorizeCmd)
}
