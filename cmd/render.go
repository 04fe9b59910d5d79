package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/demomap/internal/dataset"
	"github.com/sells-group/demomap/internal/mapview"
	"github.com/sells-group/demomap/internal/model"
	"github.com/sells-group/demomap/pkg/colorscale"
)

// errNothingToDraw is returned when no record has a point or a boundary.
var errNothingToDraw = eris.New("no drawable records")

// drawMap builds the map from every record so colour ranges match the
// colorize output. Records without a point or boundary are not drawn.
func drawMap(recs []*model.Record, opts mapview.Options) (*mapview.Map, int, error) {
	drawn := len(dataset.DropUnmapped(recs))
	if drawn == 0 {
		return nil, 0, errNothingToDraw
	}
	m, err := mapview.BuildDemographicMap(recs, opts)
	if err != nil {
		return nil, 0, err
	}
	return m, drawn, nil
}

var renderCmd = &cobra.Command{
	Use:   "render <input.csv>",
	Short: "Render a dataset as an interactive HTML map",
	Long: `Builds a Leaflet map with one switchable layer per metric, the region's
locations with their reach circles and the highlighted boundaries.

Styles: polygon draws boundaries (square cells where none are known),
square always draws cells, circle draws fixed-radius circles at ZIP points.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("render"); err != nil {
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
		kindName, _ := cmd.Flags().GetString("kind")
		style, _ := cmd.Flags().GetString("style")
		title, _ := cmd.Flags().GetString("title")
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
		if title == "" {
			title = defaultTitle(kind)
		}

		return trackRun(ctx, st, "render", args, func() (int, string, error) {
			recs, err := readRecords(ctx, args[0], kind)
			if err != nil {
				return 0, "", err
			}
			m, drawn, err := drawMap(recs, mapview.Options{
				Title:             title,
				Region:            reg,
				Style:             style,
				Family:            family,
				Caps:              caps,
				Tile:              mapview.TileFor(cfg.Render.Tiles),
				SimplifyTolerance: cfg.Render.SimplifyTolerance,
				SampleRate:        cfg.Render.SampleRate,
				CellSize:          cfg.Render.CellSize,
				FillOpacity:       cfg.Render.FillOpacity,
			})
			if err != nil {
				return 0, "", eris.Wrapf(err, "render: %s", args[0])
			}
			if err := m.Save(out); err != nil {
				return 0, "", err
			}
			return drawn, out, nil
		})
	},
}

func defaultTitle(kind model.Kind) string {
	if kind == model.KindTract {
		return "NJ, DE & Eastern PA Demographics by Census Tract"
	}
	return "NJ, DE & Eastern PA Demographics by ZIP Code"
}

// -- export --

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export datasets to other formats",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx <input.csv>",
	Short: "Write a dataset as an Excel workbook with a summary sheet",
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
		kind, err := parseKind(kindName)
		if err != nil {
			return err
		}

		return trackRun(ctx, st, "export xlsx", args, func() (int, string, error) {
			recs, err := readRecords(ctx, args[0], kind)
			if err != nil {
				return 0, "", err
			}
			if err := dataset.ExportXLSX(out, recs, kind); err != nil {
				return 0, "", err
			}
			return len(recs), out, nil
		})
	},
}

func init() {
	renderCmd.Flags().String("out", "demographics_map.html", "output HTML file")
	renderCmd.Flags().String("kind", "zip", "dataset kind: zip or tract")
	renderCmd.Flags().String("style", mapview.StylePolygon, "shape style: polygon, square or circle")
	renderCmd.Flags().String("title", "", "map title")
	renderCmd.Flags().String("scale", "", "scale family: classic, contrast, linear3, strong (default from config)")
	renderCmd.Flags().StringSlice("cap", nil, "cap a metric's range, e.g. density=10000")
	rootCmd.AddCommand(renderCmd)

	exportXLSXCmd.Flags().String("out", "demographics.xlsx", "output workbook")
	exportXLSXCmd.Flags().String("kind", "zip", "dataset kind: zip or tract")
	exportCmd.AddCommand(exportXLSXCmd)
	rootCmd.AddCommand(exportCmd)
}
