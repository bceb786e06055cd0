package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/pipeline"
	"github.com/KaramelBytes/yearlens/internal/report"
	"github.com/KaramelBytes/yearlens/internal/utils"
)

var (
	anaIn           inputFlags
	anaMonth        string
	anaTop          int
	anaGrowthWindow int
	anaOutputPath   string
	anaYearCSV      string
	anaJSONPath     string
)

// analyzeExport is the JSON form of an analyze run.
type analyzeExport struct {
	RunID      string                 `json:"run_id"`
	Month      analysis.Month         `json:"month"`
	Ingest     *analysis.IngestReport `json:"ingest,omitempty"`
	Overview   analysis.Overview      `json:"overview"`
	ABC        []analysis.ABCRow      `json:"abc"`
	TopYearSum []analysis.YearRecord  `json:"top_year_sum"`
	TopYoY     []analysis.YearRecord  `json:"top_yoy"`
	Growth     []analysis.Growth      `json:"growth"`
	Slopes     []analysis.SlopeRow    `json:"slopes"`
	Alerts     []analysis.AlertRecord `json:"alerts"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Summarize portfolio KPIs, concentration and quick picks at a month",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := anaIn.load(cmd, args)
		if err != nil {
			return err
		}
		month, err := resolveMonth(res, anaMonth)
		if err != nil {
			return err
		}
		c := settings()
		dash := buildDashboard(res, month, anaTop, anaGrowthWindow, c.CurrencyUnit)

		var md strings.Builder
		if res.Report != nil {
			md.WriteString(report.IngestMarkdown(res.Report))
			md.WriteString("\n")
		}
		md.WriteString(dash.Markdown())

		if anaYearCSV != "" {
			if err := report.WriteFile(anaYearCSV, func(w io.Writer) error { return report.WriteYearCSV(w, res.Year) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote year table to %s\n", anaYearCSV)
		}
		if anaJSONPath != "" {
			exp := analyzeExport{
				RunID:      res.RunID,
				Month:      month,
				Ingest:     res.Report,
				Overview:   dash.Overview,
				ABC:        dash.ABC,
				TopYearSum: dash.TopYearSum,
				TopYoY:     dash.TopYoY,
				Growth:     dash.Growth,
				Slopes:     analysis.SlopesSnapshotAt(res.Year, month, anaIn.effectiveLastN(cmd, c.LastN)),
				Alerts:     analysis.BuildAlerts(res.Year, month, thresholdsFrom(c)),
			}
			if err := utils.WriteJSON(anaJSONPath, exp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote JSON to %s\n", anaJSONPath)
		}
		if anaOutputPath != "" {
			if err := os.WriteFile(anaOutputPath, []byte(md.String()), 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), md.String())
		return nil
	},
}

func buildDashboard(res *pipeline.Result, month analysis.Month, top, growthWindow int, unit string) report.Dashboard {
	snap := analysis.LatestSnapshot(res.Year, month)
	return report.Dashboard{
		Overview:     analysis.AggregateOverview(res.Year, month),
		ABC:          analysis.ABCClassification(snap),
		TopYearSum:   analysis.TopByYearSum(snap, top),
		TopYoY:       analysis.TopByYoY(snap, top),
		Growth:       analysis.TopGrowth(res.Year, month, growthWindow, top),
		GrowthWindow: growthWindow,
		Unit:         unit,
	}
}

func (in *inputFlags) effectiveLastN(cmd *cobra.Command, def int) int {
	if cmd.Flags().Changed("last-n") && in.lastN >= 0 {
		return in.lastN
	}
	return def
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaIn.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaMonth, "month", "", "month to report (YYYY-MM, default latest)")
	analyzeCmd.Flags().IntVar(&anaTop, "top", 5, "number of products in each quick pick")
	analyzeCmd.Flags().IntVar(&anaGrowthWindow, "growth-window", 6, "months behind the top growth pick")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaYearCSV, "year-csv", "", "write the full year-rolling table as CSV")
	analyzeCmd.Flags().StringVar(&anaJSONPath, "json", "", "write the analysis as JSON")
}
