package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/gazetteer"
	"github.com/sells-group/demomap/internal/model"
)

var gazetteerCmd = &cobra.Command{
	Use:   "gazetteer",
	Short: "Manage the local ZIP gazetteer",
}

// -- gazetteer load --

var gazetteerLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download the GeoNames US postal codes into the local database",
	Long:  "Downloads the GeoNames US postal code dump unless it is unchanged since the last load, and keeps the ZIPs of the region's states.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg, err := initRegion()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		force, _ := cmd.Flags().GetBool("force")

		return trackRun(ctx, st, "gazetteer load", args, func() (int, string, error) {
			l := &gazetteer.Loader{
				Fetcher: initFetcher(),
				Store:   st,
				URL:     cfg.Gazetteer.URL,
				WorkDir: cfg.Paths.WorkDir,
			}
			res, err := l.Load(ctx, reg, force)
			if err != nil {
				return 0, "", err
			}
			if n, err := st.DeleteExpiredResponses(ctx); err == nil && n > 0 {
				zap.L().Info("pruned expired api responses", zap.Int("rows", n))
			}
			fmt.Fprintf(os.Stdout, "%d ZIP codes (changed: %v)\n", res.Rows, res.Changed)
			return res.Rows, cfg.Gazetteer.DBPath, nil
		})
	},
}

// -- zips --

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "List the region's ZIP codes by county",
	Long:  "Lists every gazetteer ZIP in the region's counties, reports counties with none, and optionally writes the list as a located ZIP dataset.",
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
		quiet, _ := cmd.Flags().GetBool("quiet")
		prefix, _ := cmd.Flags().GetString("prefix")

		return trackRun(ctx, st, "zips", args, func() (int, string, error) {
			g := gazetteer.New(st, minutes(cfg.Gazetteer.MemoTTLMins))

			var codes []model.PostalCode
			if prefix != "" {
				codes, err = g.ByPrefix(ctx, prefix)
				if err != nil {
					return 0, "", err
				}
				if !quiet {
					formatPostalCodes(os.Stdout, codes)
				}
			} else {
				cov, err := g.Coverage(ctx, reg)
				if err != nil {
					return 0, "", err
				}
				if !quiet {
					formatCoverage(os.Stdout, cov)
				}
				for _, cz := range cov.Counties {
					codes = append(codes, cz.Codes...)
				}
			}

			if out == "" {
				return len(codes), "", nil
			}
			out = outputPath(out)
			if err := dataset.WriteFile(out, dataset.FromPostalCodes(codes), model.KindZIP); err != nil {
				return 0, "", err
			}
			return len(codes), out, nil
		})
	},
}

// formatCoverage writes the per-county ZIP counts and the counties without
// any ZIP.
func formatCoverage(out io.Writer, cov *gazetteer.Coverage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STATE\tCOUNTY\tZIPS\tSAMPLE")
	_, _ = fmt.Fprintln(w, "-----\t------\t----\t------")
	for _, cz := range cov.Counties {
		sample := make([]string, 0, 5)
		for i, c := range cz.Codes {
			if i == 5 {
				break
			}
			sample = append(sample, c.ZIP)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", cz.County.State, cz.County.Name, len(cz.Codes), strings.Join(sample, " "))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal: %d ZIP codes in %d counties\n", cov.Total(), len(cov.Counties))
	if len(cov.Missing) > 0 {
		_, _ = fmt.Fprintf(out, "No ZIP codes found for: %s\n", strings.Join(cov.Missing, ", "))
	}
}

func formatPostalCodes(out io.Writer, codes []model.PostalCode) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ZIP\tCITY\tSTATE\tCOUNTY\tLAT\tLON")
	for _, c := range codes {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%.4f\n", c.ZIP, c.City, c.State, c.County, c.Lat, c.Lon)
	}
	_ = w.Flush()
}

func init() {
	gazetteerLoadCmd.Flags().Bool("force", false, "download even if the stored copy is current")
	gazetteerCmd.AddCommand(gazetteerLoadCmd)
	rootCmd.AddCommand(gazetteerCmd)

	zipsCmd.Flags().String("out", "", "write the ZIP list as a CSV dataset")
	zipsCmd.Flags().String("prefix", "", "list ZIPs starting with this prefix instead of by county")
	zipsCmd.Flags().Bool("quiet", false, "do not print the listing")
	rootCmd.AddCommand(zipsCmd)
}
