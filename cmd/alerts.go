package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	cfgpkg "github.com/KaramelBytes/yearlens/internal/config"
	"github.com/KaramelBytes/yearlens/internal/metrics"
	"github.com/KaramelBytes/yearlens/internal/report"
)

var (
	alIn       inputFlags
	alMonth    string
	alCSV      string
	alYoY      float64
	alDelta    float64
	alSlope    float64
	alDisabled []string
)

var alertsCmd = &cobra.Command{
	Use:   "alerts [file]",
	Short: "List products breaching the yoy, delta or slope thresholds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		th := thresholdsFrom(c)
		f := cmd.Flags()
		if f.Changed("yoy") {
			th.YoY = analysis.Some(alYoY)
		}
		if f.Changed("delta") {
			th.Delta = analysis.Some(alDelta)
		}
		if f.Changed("slope") {
			th.Slope = analysis.Some(alSlope)
		}
		for _, d := range alDisabled {
			switch d {
			case "yoy":
				th.YoY = analysis.Null
			case "delta":
				th.Delta = analysis.Null
			case "slope", "slope_beta":
				th.Slope = analysis.Null
			default:
				return fmt.Errorf("invalid --disable: %s (use yoy|delta|slope)", d)
			}
		}

		res, err := alIn.load(cmd, args)
		if err != nil {
			return err
		}
		month, err := resolveMonth(res, alMonth)
		if err != nil {
			return err
		}
		alerts := analysis.BuildAlerts(res.Year, month, th)
		for _, a := range alerts {
			metrics.AddAlert(a.Metrics...)
		}
		commandLog(cmd).WithFields(logrus.Fields{
			"month":  month.String(),
			"alerts": len(alerts),
		}).Info("alerts built")

		if alCSV != "" {
			if err := report.WriteFile(alCSV, func(w io.Writer) error { return report.WriteAlertsCSV(w, alerts) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d alerts to %s\n", len(alerts), alCSV)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), report.AlertsMarkdown(month, alerts, th, c.CurrencyUnit))
		return nil
	},
}

func thresholdsFrom(c *cfgpkg.Global) analysis.AlertThresholds {
	return analysis.AlertThresholds{
		YoY:   analysis.Some(c.YoYThreshold),
		Delta: analysis.Some(c.DeltaThreshold),
		Slope: analysis.Some(c.SlopeThreshold),
	}
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alIn.register(alertsCmd)
	fl := alertsCmd.Flags()
	fl.StringVar(&alMonth, "month", "", "month to evaluate (YYYY-MM, default latest)")
	fl.StringVar(&alCSV, "csv", "", "write alerts as CSV instead of printing them")
	fl.Float64Var(&alYoY, "yoy", -0.10, "yoy threshold as a ratio (overrides config)")
	fl.Float64Var(&alDelta, "delta", -300000, "delta threshold in amount units (overrides config)")
	fl.Float64Var(&alSlope, "slope", -1.0, "slope_beta threshold (overrides config)")
	fl.StringSliceVar(&alDisabled, "disable", nil, "thresholds to switch off: yoy, delta, slope")
}
