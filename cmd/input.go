package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	cfgpkg "github.com/KaramelBytes/yearlens/internal/config"
	"github.com/KaramelBytes/yearlens/internal/parser"
	"github.com/KaramelBytes/yearlens/internal/pipeline"
	"github.com/KaramelBytes/yearlens/internal/project"
)

// inputFlags are the table and rolling options shared by every analysis command.
type inputFlags struct {
	project    string
	sheet      string
	sheetIndex int
	delimiter  string
	nameCol    string
	codeCol    string
	decimal    string
	thousands  string
	policy     string
	window     int
	lastN      int
}

func (in *inputFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&in.project, "project", "p", "", "analyze a project's stored datasets instead of a file")
	f.StringVar(&in.sheet, "sheet", "", "XLSX: sheet name")
	f.IntVar(&in.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet not provided)")
	f.StringVar(&in.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&in.nameCol, "name-col", "", "product name column (overrides config)")
	f.StringVar(&in.codeCol, "code-col", "", "product code column; codes are derived from names if omitted")
	f.StringVar(&in.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&in.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.StringVar(&in.policy, "policy", "", "missing month policy: zero_fill|mark_missing (overrides config)")
	f.IntVar(&in.window, "window", 0, "rolling window in months (overrides config)")
	f.IntVar(&in.lastN, "last-n", -1, "trailing points for slope_beta, 0 = full history (overrides config)")
}

func (in *inputFlags) readerOptions() (parser.Options, error) {
	opt := parser.Options{Sheet: in.sheet, SheetIndex: in.sheetIndex}
	switch in.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", in.delimiter)
	}
	return opt, nil
}

func (in *inputFlags) normalizeOptions(c *cfgpkg.Global) (analysis.NormalizeOptions, error) {
	opt := analysis.NormalizeOptions{NameColumn: c.NameColumn, CodeColumn: c.CodeColumn}
	if in.nameCol != "" {
		opt.NameColumn = in.nameCol
	}
	if in.codeCol != "" {
		opt.CodeColumn = in.codeCol
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(in.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", in.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(in.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", in.thousands)
	}
	return opt, nil
}

func (in *inputFlags) pipelineOptions(cmd *cobra.Command, c *cfgpkg.Global) (pipeline.Options, error) {
	nopt, err := in.normalizeOptions(c)
	if err != nil {
		return pipeline.Options{}, err
	}
	opt := pipeline.Options{
		Normalize: nopt,
		Window:    c.Window,
		LastN:     c.LastN,
		Policy:    analysis.Policy(c.MissingPolicy),
		Workers:   c.Workers,
	}
	f := cmd.Flags()
	if f.Changed("window") {
		opt.Window = in.window
	}
	if f.Changed("last-n") && in.lastN >= 0 {
		opt.LastN = in.lastN
	}
	if in.policy != "" {
		p, ok := analysis.ParsePolicy(in.policy)
		if !ok {
			return opt, fmt.Errorf("invalid --policy: %s (use zero_fill|mark_missing)", in.policy)
		}
		opt.Policy = p
	}
	return opt, nil
}

// load runs the pipeline over the file argument or the --project datasets.
func (in *inputFlags) load(cmd *cobra.Command, args []string) (*pipeline.Result, error) {
	c := settings()
	if (len(args) == 0) == (in.project == "") {
		return nil, errors.New("specify exactly one of <file> or --project")
	}
	opt, err := in.pipelineOptions(cmd, c)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(logger)
	ctx := cmd.Context()
	if in.project != "" {
		dir, err := resolveProjectDirByName(in.project)
		if err != nil {
			return nil, err
		}
		p, err := project.LoadProject(dir)
		if err != nil {
			return nil, err
		}
		recs, err := p.Records()
		if err != nil {
			return nil, err
		}
		return runner.RunRecords(ctx, p.Name, recs, opt)
	}
	ropt, err := in.readerOptions()
	if err != nil {
		return nil, err
	}
	table, err := parser.ReadFile(args[0], ropt)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, table, opt)
}

// resolveMonth returns the --month flag value, or the latest month of res.
func resolveMonth(res *pipeline.Result, flag string) (analysis.Month, error) {
	if flag != "" {
		m, ok := analysis.ParseMonth(flag)
		if !ok {
			return 0, fmt.Errorf("invalid --month: %s (use YYYY-MM)", flag)
		}
		return m, nil
	}
	if !res.HasLatest {
		return 0, errors.New("table has no months")
	}
	return res.Latest, nil
}
