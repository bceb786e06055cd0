package cmd

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/report"
)

var (
	bandIn        inputFlags
	bandMode      string
	bandMonth     string
	bandLow       float64
	bandHigh      float64
	bandA         string
	bandB         string
	bandRankFrom  int
	bandRankTo    int
	bandTarget    string
	bandWidth     float64
	bandRelative  bool
	bandSlopeKind string
	bandSlopeMin  float64
	bandSlopeMax  float64
	bandShape     string
	bandSens      float64
	bandSteepZ    float64
)

var bandCmd = &cobra.Command{
	Use:   "band [file]",
	Short: "Select products whose year total falls in a band",
	Long: `Modes:
  amount        --low/--high are amounts
  two-products  --code-a/--code-b name two product codes spanning the band
  percentile    --low/--high are percentiles 0..100 of the snapshot
  rank          --from/--to are 1-based ranks, 1 = largest
  target-near   --target code ± --width (a fraction with --relative)

The selection can be narrowed by trend (--slope-kind with --slope-min/--slope-max)
and by shape (--shape mountain|valley|steep).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		band, err := bandFromFlags()
		if err != nil {
			return err
		}
		res, err := bandIn.load(cmd, args)
		if err != nil {
			return err
		}
		month, err := resolveMonth(res, bandMonth)
		if err != nil {
			return err
		}
		c := settings()
		snap := analysis.LatestSnapshot(res.Year, month)
		low, high, ok := analysis.ResolveBand(snap, band)
		codes := analysis.SelectBand(snap, band)

		lastN := bandIn.effectiveLastN(cmd, c.LastN)
		if codes, err = filterBySlope(cmd, res.Year, month, lastN, codes); err != nil {
			return err
		}
		sens := c.ShapeSensitivity
		if cmd.Flags().Changed("sensitivity") {
			sens = bandSens
		}
		if codes, err = filterByShape(res.Year, month, lastN, sens, codes); err != nil {
			return err
		}
		commandLog(cmd).WithFields(logrus.Fields{
			"mode":     band.Mode(),
			"resolved": ok,
			"selected": len(codes),
		}).Info("band selected")
		fmt.Fprint(cmd.OutOrStdout(), report.BandMarkdown(band.Mode(), low, high, ok, snap, codes, c.CurrencyUnit))
		return nil
	},
}

func bandFromFlags() (analysis.Band, error) {
	switch bandMode {
	case "amount":
		return analysis.NewAmountBand(bandLow, bandHigh)
	case "two-products", "two_products":
		return analysis.NewTwoProductsBand(bandA, bandB)
	case "percentile":
		return analysis.NewPercentileBand(bandLow, bandHigh)
	case "rank":
		return analysis.NewRankBand(bandRankFrom, bandRankTo)
	case "target-near", "target_near":
		return analysis.NewTargetNearBand(bandTarget, bandWidth, bandRelative)
	}
	return nil, fmt.Errorf("invalid --mode: %s (use amount|two-products|percentile|rank|target-near)", bandMode)
}

// filterBySlope keeps codes whose slope of the chosen kind lies in the
// --slope-min/--slope-max range. Null slopes never pass.
func filterBySlope(cmd *cobra.Command, rows []analysis.YearRecord, month analysis.Month, n int, codes []string) ([]string, error) {
	if bandSlopeKind == "" {
		return codes, nil
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if cmd.Flags().Changed("slope-min") {
		lo = bandSlopeMin
	}
	if cmd.Flags().Changed("slope-max") {
		hi = bandSlopeMax
	}
	pick := map[string]func(analysis.SlopeRow) analysis.Float{
		"yen":   func(r analysis.SlopeRow) analysis.Float { return r.SlopeYen },
		"ratio": func(r analysis.SlopeRow) analysis.Float { return r.SlopeRatio },
		"z":     func(r analysis.SlopeRow) analysis.Float { return r.SlopeZ },
	}[bandSlopeKind]
	if pick == nil {
		return nil, fmt.Errorf("invalid --slope-kind: %s (use yen|ratio|z)", bandSlopeKind)
	}
	pass := map[string]bool{}
	for _, r := range analysis.SlopesSnapshotAt(rows, month, n) {
		if v := pick(r); v.Valid && v.Value >= lo && v.Value <= hi {
			pass[r.ProductCode] = true
		}
	}
	return keep(codes, pass), nil
}

// filterByShape keeps mountains, valleys, or steep products (|slope_z| at
// least --steep-z).
func filterByShape(rows []analysis.YearRecord, month analysis.Month, n int, sens float64, codes []string) ([]string, error) {
	pass := map[string]bool{}
	switch bandShape {
	case "":
		return codes, nil
	case "steep":
		for _, r := range analysis.SlopesSnapshotAt(rows, month, n) {
			if r.SlopeZ.Valid && math.Abs(r.SlopeZ.Value) >= bandSteepZ {
				pass[r.ProductCode] = true
			}
		}
	case "mountain", "valley":
		var upto []analysis.YearRecord
		for _, r := range rows {
			if r.Month <= month {
				upto = append(upto, r)
			}
		}
		window, alpha, amp := analysis.ShapeParams(sens, n)
		for _, s := range analysis.ShapeFlags(upto, window, alpha, amp) {
			if (bandShape == "mountain" && s.Mountain) || (bandShape == "valley" && s.Valley) {
				pass[s.ProductCode] = true
			}
		}
	default:
		return nil, fmt.Errorf("invalid --shape: %s (use mountain|valley|steep)", bandShape)
	}
	return keep(codes, pass), nil
}

func keep(codes []string, pass map[string]bool) []string {
	out := []string{}
	for _, c := range codes {
		if pass[c] {
			out = append(out, c)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(bandCmd)
	bandIn.register(bandCmd)
	fl := bandCmd.Flags()
	fl.StringVar(&bandMode, "mode", "amount", "amount | two-products | percentile | rank | target-near")
	fl.StringVar(&bandMonth, "month", "", "snapshot month (YYYY-MM, default latest)")
	fl.Float64Var(&bandLow, "low", 0, "amount or percentile lower bound")
	fl.Float64Var(&bandHigh, "high", 0, "amount or percentile upper bound")
	fl.StringVar(&bandA, "code-a", "", "two-products: first product code")
	fl.StringVar(&bandB, "code-b", "", "two-products: second product code")
	fl.IntVar(&bandRankFrom, "from", 1, "rank: first rank")
	fl.IntVar(&bandRankTo, "to", 10, "rank: last rank")
	fl.StringVar(&bandTarget, "target", "", "target-near: product code")
	fl.Float64Var(&bandWidth, "width", 0, "target-near: half width, an amount or a fraction with --relative")
	fl.BoolVar(&bandRelative, "relative", false, "target-near: width is a fraction of the target's year total")
	fl.StringVar(&bandSlopeKind, "slope-kind", "", "filter by slope: yen | ratio | z")
	fl.Float64Var(&bandSlopeMin, "slope-min", 0, "minimum slope for --slope-kind")
	fl.Float64Var(&bandSlopeMax, "slope-max", 0, "maximum slope for --slope-kind")
	fl.StringVar(&bandShape, "shape", "", "filter by shape: mountain | valley | steep")
	fl.Float64Var(&bandSens, "sensitivity", 0.5, "shape sensitivity 0..1 (overrides config)")
	fl.Float64Var(&bandSteepZ, "steep-z", 1.5, "steep: minimum |slope_z|")
}
