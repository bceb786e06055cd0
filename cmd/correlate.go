package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/report"
)

var (
	corIn         inputFlags
	corMode       string
	corMetrics    []string
	corMethod     string
	corWinsor     float64
	corLog1p      bool
	corMinPeriods int
	corPeriod     int
	corTopSKUs    int
	corSKUMetric  string
	corTop        int
	corMonth      string
	corFit        string
)

var correlateCmd = &cobra.Command{
	Use:   "correlate [file]",
	Short: "Correlate metrics across products, or products across months",
	Long: `metric mode correlates metric columns over the products of one month's snapshot.
sku mode correlates the top products against each other over a trailing run of months.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		f := cmd.Flags()
		method := analysis.CorrMethod(c.CorrMethod)
		if f.Changed("method") {
			m, ok := analysis.ParseCorrMethod(strings.ToLower(corMethod))
			if !ok {
				return fmt.Errorf("invalid --method: %s (use pearson|spearman)", corMethod)
			}
			method = m
		}
		minPeriods := c.CorrMinPeriods
		if f.Changed("min-periods") {
			minPeriods = corMinPeriods
		}
		winsor := c.WinsorPct
		if f.Changed("winsor") {
			winsor = corWinsor
		}
		if winsor < 0 || winsor > 50 {
			return fmt.Errorf("invalid --winsor: %g (use 0..50)", winsor)
		}

		res, err := corIn.load(cmd, args)
		if err != nil {
			return err
		}
		month, err := resolveMonth(res, corMonth)
		if err != nil {
			return err
		}

		var frame *analysis.Frame
		labels := map[string]string{}
		opt := analysis.CorrOptions{Method: method, MinPeriods: minPeriods, Workers: c.Workers}
		switch corMode {
		case "metric":
			ms, err := parseMetrics(corMetrics)
			if err != nil {
				return err
			}
			frame = analysis.SnapshotFrame(analysis.LatestSnapshot(res.Year, month), ms)
		case "sku":
			m, ok := analysis.ParseMetric(corSKUMetric)
			if !ok {
				return fmt.Errorf("invalid --sku-metric: %s", corSKUMetric)
			}
			frame = analysis.SKUFrame(res.Year, analysis.SKUFrameOptions{
				Metric: m, End: month, Period: corPeriod, TopN: corTopSKUs, MinPeriods: minPeriods,
			})
			for _, r := range analysis.LatestSnapshot(res.Year, month) {
				labels[r.ProductCode] = strings.TrimSpace(r.ProductCode + " " + r.ProductName)
			}
			opt.Pairwise = true
		default:
			return fmt.Errorf("invalid --mode: %s (use metric|sku)", corMode)
		}

		if winsor > 0 {
			frame = analysis.WinsorizeFrame(frame, frame.Columns, winsor/100)
		}
		frame, warnings := analysis.MaybeLog1p(frame, frame.Columns, corLog1p)
		pairs := analysis.CorrTable(frame, nil, opt)
		insights := analysis.NarrateTopInsights(pairs, labels, corTop)
		commandLog(cmd).WithFields(logrus.Fields{
			"mode":    corMode,
			"method":  method,
			"columns": len(frame.Columns),
			"pairs":   len(pairs),
		}).Info("correlations computed")

		out := cmd.OutOrStdout()
		fmt.Fprint(out, report.CorrelationMarkdown(method, pairs, insights, warnings))
		if corFit != "" {
			x, y, ok := strings.Cut(corFit, ",")
			if !ok || frame.Column(x) == nil || frame.Column(y) == nil {
				return fmt.Errorf("invalid --fit: %s (use two column names, e.g. year_sum,yoy)", corFit)
			}
			fit := analysis.FitLine(frame.Column(x), frame.Column(y))
			fmt.Fprintf(out, "\n[FIT %s ~ %s]\n- slope: %s\n- intercept: %s\n- r2: %s\n- n: %d\n",
				y, x, report.Number(fit.Slope), report.Number(fit.Intercept), report.Number(fit.R2), fit.N)
		}
		return nil
	},
}

func parseMetrics(names []string) ([]analysis.Metric, error) {
	out := make([]analysis.Metric, 0, len(names))
	for _, n := range names {
		m, ok := analysis.ParseMetric(strings.TrimSpace(n))
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", n)
		}
		out = append(out, m)
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("need at least two metrics, got %d", len(out))
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(correlateCmd)
	corIn.register(correlateCmd)
	fl := correlateCmd.Flags()
	fl.StringVar(&corMode, "mode", "metric", "metric | sku")
	fl.StringSliceVar(&corMetrics, "metrics", []string{"year_sum", "yoy", "delta", "slope_beta"}, "metric mode: columns to correlate")
	fl.StringVar(&corMethod, "method", "pearson", "pearson | spearman (overrides config)")
	fl.Float64Var(&corWinsor, "winsor", 0, "clip each column to [p, 100-p] percentiles, p in 0..50 (overrides config)")
	fl.BoolVar(&corLog1p, "log1p", false, "apply log(1+x) to non-negative columns")
	fl.IntVar(&corMinPeriods, "min-periods", analysis.DefaultCorrMinPeriods, "minimum overlapping points per pair (overrides config)")
	fl.IntVar(&corPeriod, "period", 12, "sku mode: trailing months")
	fl.IntVar(&corTopSKUs, "top-skus", 10, "sku mode: largest products to include")
	fl.StringVar(&corSKUMetric, "sku-metric", "year_sum", "sku mode: metric pivoted per product")
	fl.IntVar(&corTop, "top", 5, "insights to narrate")
	fl.StringVar(&corMonth, "month", "", "snapshot or end month (YYYY-MM, default latest)")
	fl.StringVar(&corFit, "fit", "", "fit a line between two columns, given as x,y")
}
