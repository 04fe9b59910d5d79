package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/internal/synth"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the synthetic ZIP demographic dataset",
	Long:  "Generates deterministic demographics for the region's ZIP prefixes. Used when the Census API is unavailable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		out, _ := cmd.Flags().GetString("out")
		out = outputPath(out)
		seed, _ := cmd.Flags().GetInt64("seed")
		if !cmd.Flags().Changed("seed") {
			seed = cfg.Synth.Seed
		}

		return trackRun(ctx, st, "generate", args, func() (int, string, error) {
			recs := synth.Generate(seed, synth.Profiles)
			if err := dataset.WriteFile(out, recs, model.KindZIP); err != nil {
				return 0, "", err
			}
			formatCategories(os.Stdout, recs)
			return len(recs), out, nil
		})
	},
}

// formatCategories prints how many ZIPs fall in each density and income
// bucket.
func formatCategories(out io.Writer, recs []*model.Record) {
	density := make(map[string]int)
	income := make(map[string]int)
	for _, r := range recs {
		if v, ok := r.Value(model.MetricDensity); ok {
			density[synth.DensityCategory(v)]++
		}
		if v, ok := r.Value(model.MetricMedianIncome); ok {
			income[synth.IncomeCategory(v)]++
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DENSITY\tZIPS")
	writeCounts(w, density)
	_, _ = fmt.Fprintln(w, "\nINCOME\tZIPS")
	writeCounts(w, income)
	_ = w.Flush()
}

func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", k, counts[k])
	}
}

func init() {
	generateCmd.Flags().String("out", "zip_demographics.csv", "output CSV")
	generateCmd.Flags().Int64("seed", synth.DefaultSeed, "random seed (default from config)")
	rootCmd.AddCommand(generateCmd)
}
