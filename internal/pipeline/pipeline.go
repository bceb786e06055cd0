// Package pipeline turns a wide table into the enriched year-rolling table:
// normalize, fill missing months, roll trailing sums, then fit slopes.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/metrics"
)

// Stage names, used as log fields and metric labels.
const (
	StageNormalize = "normalize"
	StageFill      = "fill_missing"
	StageRolling   = "year_rolling"
	StageSlopes    = "slopes"
)

// Options configures one run.
type Options struct {
	Normalize analysis.NormalizeOptions
	Window    int
	LastN     int
	Policy    analysis.Policy
	Workers   int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Normalize: analysis.NormalizeOptions{NameColumn: "product_name"},
		Window:    analysis.DefaultWindow,
		LastN:     analysis.DefaultLastN,
		Policy:    analysis.PolicyZeroFill,
	}
}

// Result holds every table a run produced.
type Result struct {
	RunID   string
	Report  *analysis.IngestReport
	Records []analysis.MonthlyRecord
	Year    []analysis.YearRecord
	// Latest is the last month of Year; valid only when HasLatest.
	Latest    analysis.Month
	HasLatest bool
}

// Runner executes runs and reports them to its logger and the metrics package.
type Runner struct {
	logger *logrus.Logger
}

// NewRunner returns a Runner logging through logger.
func NewRunner(logger *logrus.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run normalizes t and derives the year-rolling table.
func (r *Runner) Run(ctx context.Context, t analysis.WideTable, opt Options) (*Result, error) {
	res, log := r.begin(t.Name)
	var records []analysis.MonthlyRecord
	err := r.stage(ctx, log, StageNormalize, func() error {
		recs, rep, err := analysis.Normalize(t, opt.Normalize)
		if err != nil {
			return err
		}
		records, res.Report = recs, rep
		metrics.SetIngest(rep.Products, rep.Records, rep.MissingCells, rep.NonNumericCells)
		log.WithFields(logrus.Fields{
			"products":      rep.Products,
			"records":       rep.Records,
			"month_columns": len(rep.MonthColumns),
			"missing_cells": rep.MissingCells,
			"non_numeric":   rep.NonNumericCells,
		}).Info("table normalized")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Report.NonNumericCells > 0 {
		log.WithField("cells", res.Report.NonNumericCells).Warn("non-numeric cells treated as missing")
	}
	return r.derive(ctx, log, res, records, opt)
}

// RunRecords derives the year-rolling table from records that were already
// normalized, such as a project's stored datasets.
func (r *Runner) RunRecords(ctx context.Context, name string, records []analysis.MonthlyRecord, opt Options) (*Result, error) {
	res, log := r.begin(name)
	return r.derive(ctx, log, res, records, opt)
}

func (r *Runner) begin(name string) (*Result, *logrus.Entry) {
	res := &Result{RunID: uuid.NewString()}
	log := r.logger.WithFields(logrus.Fields{
		"component": "pipeline",
		"run_id":    res.RunID,
	})
	if name != "" {
		log = log.WithField("table", name)
	}
	return res, log
}

func (r *Runner) derive(ctx context.Context, log *logrus.Entry, res *Result, records []analysis.MonthlyRecord, opt Options) (*Result, error) {
	policy := opt.Policy
	if policy == "" {
		policy = analysis.PolicyZeroFill
	}
	err := r.stage(ctx, log, StageFill, func() error {
		res.Records = analysis.FillMissing(records, policy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = r.stage(ctx, log, StageRolling, func() error {
		year, err := analysis.ComputeYearRolling(res.Records, opt.Window, policy)
		if err != nil {
			return err
		}
		res.Year = year
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = r.stage(ctx, log, StageSlopes, func() error {
		res.Year = analysis.ComputeSlopes(res.Year, analysis.SlopeOptions{LastN: opt.LastN, Workers: opt.Workers})
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Latest, res.HasLatest = analysis.LatestMonth(res.Year)
	fields := logrus.Fields{"rows": len(res.Year)}
	if res.HasLatest {
		fields["latest"] = res.Latest.String()
	}
	log.WithFields(fields).Info("year-rolling table ready")
	return res, nil
}

// stage runs fn unless ctx is done, timing it for logs and metrics.
func (r *Runner) stage(ctx context.Context, log *logrus.Entry, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveStage(name, elapsed, outcome)
	entry := log.WithFields(logrus.Fields{"stage": name, "duration_ms": elapsed.Milliseconds()})
	if err != nil {
		entry.WithError(err).Error("stage failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	entry.Debug("stage done")
	return nil
}
