package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/metrics"
	"github.com/KaramelBytes/yearlens/internal/report"
)

var (
	anoIn        inputFlags
	anoWindow    int
	anoThreshold float64
	anoRobust    bool
	anoCodes     []string
	anoTop       int
	anoCSV       string
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies [file]",
	Short: "Flag year totals that break their product's recent linear trend",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := anoIn.load(cmd, args)
		if err != nil {
			return err
		}
		c := settings()
		opt := analysis.AnomalyOptions{
			Window:    c.AnomalyWindow,
			Threshold: c.AnomalyThreshold,
			Robust:    c.AnomalyRobust,
			Codes:     anoCodes,
			Workers:   c.Workers,
		}
		f := cmd.Flags()
		if f.Changed("fit-window") {
			opt.Window = anoWindow
		}
		if f.Changed("robust") {
			opt.Robust = anoRobust
		}
		switch {
		case f.Changed("threshold"):
			opt.Threshold = anoThreshold
		case opt.Robust && opt.Threshold == analysis.DefaultAnomalyThreshold:
			// Robust scores run higher; keep the default false-positive rate comparable.
			opt.Threshold = analysis.DefaultAnomalyMADThreshold
		}
		if opt.Window < 2 {
			return fmt.Errorf("invalid --fit-window: %d (need at least 2)", opt.Window)
		}

		recs := analysis.DetectAnomalies(res.Year, opt)
		sum := analysis.SummarizeAnomalies(recs)
		metrics.AddAnomalies(sum.Up, sum.Down)
		commandLog(cmd).WithFields(logrus.Fields{
			"window":    opt.Window,
			"threshold": opt.Threshold,
			"robust":    opt.Robust,
			"flagged":   sum.Total,
		}).Info("anomaly scan done")

		if anoCSV != "" {
			if err := report.WriteFile(anoCSV, func(w io.Writer) error { return report.WriteAnomaliesCSV(w, recs) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote anomalies to %s\n", anoCSV)
		}
		if anoTop > 0 && len(recs) > anoTop {
			recs = recs[:anoTop]
		}
		fmt.Fprint(cmd.OutOrStdout(), report.AnomaliesMarkdown(recs, sum, c.CurrencyUnit))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(anomaliesCmd)
	anoIn.register(anomaliesCmd)
	// The shared --window is the rolling window; the fit window gets its own name.
	anomaliesCmd.Flags().IntVar(&anoWindow, "fit-window", analysis.DefaultAnomalyWindow, "trailing points in each local trend fit (overrides config)")
	anomaliesCmd.Flags().Float64Var(&anoThreshold, "threshold", analysis.DefaultAnomalyThreshold, "|score| at or above which a point is flagged (overrides config)")
	anomaliesCmd.Flags().BoolVar(&anoRobust, "robust", false, "score against MAD instead of standard deviation")
	anomaliesCmd.Flags().StringSliceVar(&anoCodes, "codes", nil, "restrict to these product codes")
	anomaliesCmd.Flags().IntVar(&anoTop, "top", 20, "anomalies to list, 0 = all")
	anomaliesCmd.Flags().StringVar(&anoCSV, "csv", "", "write every flagged anomaly as CSV")
}
