package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cobra.OnInitialize(loadConfig)
	os.Exit(m.Run())
}

// resetFlags restores defaults and clears Changed so flags do not stick
// across invocations of the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(fl *pflag.Flag) {
			if sv, ok := fl.Value.(pflag.SliceValue); ok {
				def := strings.Trim(fl.DefValue, "[]")
				var vals []string
				if def != "" {
					vals = strings.Split(def, ",")
				}
				_ = sv.Replace(vals)
			} else {
				_ = fl.Value.Set(fl.DefValue)
			}
			fl.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args and return stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := tryCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func tryCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeSales writes 26 months (2022-01..2024-02) for three products:
// A is flat, B drops tenfold after 14 months, C has a one-month spike.
func writeSales(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("product_code,product_name")
	for i := 0; i < 26; i++ {
		fmt.Fprintf(&b, ",%d-%02d", 2022+i/12, i%12+1)
	}
	b.WriteString("\n")
	row := func(code, name string, amount func(i int) int) {
		b.WriteString(code + "," + name)
		for i := 0; i < 26; i++ {
			fmt.Fprintf(&b, ",%d", amount(i))
		}
		b.WriteString("\n")
	}
	row("A", "Alpha", func(int) int { return 100000 })
	row("B", "Beta", func(i int) int {
		if i < 14 {
			return 100000
		}
		return 10000
	})
	row("C", "Gamma", func(i int) int {
		if i == 20 {
			return 500000
		}
		return 50000
	})
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestCLI_IngestReportsQuality(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)

	out := runCmd(t, "ingest", src, "--code-col", "product_code")
	assert.Contains(t, out, "[DATASET SUMMARY]")
	assert.Contains(t, out, "Products: 3")
	assert.Contains(t, out, "Months: 2022-01 .. 2024-02 (26 columns)")
	assert.Contains(t, out, "- missing cells: 0")
}

func TestCLI_AnalyzeWritesExports(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)
	jsonPath := filepath.Join(home, "out.json")
	csvPath := filepath.Join(home, "year.csv")
	metricsPath := filepath.Join(home, "yearlens.prom")

	out := runCmd(t, "analyze", src, "--code-col", "product_code", "--json", jsonPath, "--year-csv", csvPath, "--metrics-file", metricsPath)
	assert.Contains(t, out, "[OVERVIEW 2024-02]")
	assert.Contains(t, out, "- products: 3")
	assert.Contains(t, out, "[TOP BY YEAR TOTAL]")
	assert.Contains(t, out, "1. A Alpha: 1,200,000円")

	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var exp struct {
		Month  string `json:"month"`
		Alerts []struct {
			ProductCode string `json:"product_code"`
		} `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(b, &exp))
	assert.Equal(t, "2024-02", exp.Month)
	require.Len(t, exp.Alerts, 1)
	assert.Equal(t, "B", exp.Alerts[0].ProductCode)

	b, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	assert.Len(t, lines, 1+3*26)

	b, err = os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "yearlens_stage_runs_total")
}

func TestCLI_Alerts(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)

	out := runCmd(t, "alerts", src, "--code-col", "product_code")
	assert.Contains(t, out, "[ALERTS 2024-02]")
	assert.Contains(t, out, "- B Beta: year total 120,000円; yoy -90.0% <= -10.0%")
	assert.NotContains(t, out, "- A ")
	assert.NotContains(t, out, "- C ")

	out = runCmd(t, "alerts", src, "--code-col", "product_code", "--disable", "yoy,slope")
	assert.Contains(t, out, "(no alerts)")

	csvPath := filepath.Join(home, "alerts.csv")
	out = runCmd(t, "alerts", src, "--code-col", "product_code", "--csv", csvPath)
	assert.Contains(t, out, "Wrote 1 alerts")
	b, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "\ufeffproduct_code,"))
}

func TestCLI_BandRankAndFilters(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)

	out := runCmd(t, "band", src, "--code-col", "product_code", "--mode", "rank", "--from", "1", "--to", "2")
	assert.Contains(t, out, "[BAND rank]")
	assert.Contains(t, out, "Selected: 2")
	assert.Contains(t, out, "- A Alpha")
	assert.Contains(t, out, "- C Gamma")

	out = runCmd(t, "band", src, "--code-col", "product_code", "--mode", "amount", "--low", "0", "--high", "2000000",
		"--slope-kind", "yen", "--slope-max", "-1")
	assert.Contains(t, out, "Selected: 1")
	assert.Contains(t, out, "- B Beta")

	out = runCmd(t, "band", src, "--code-col", "product_code", "--mode", "target-near", "--target", "nope", "--width", "1")
	assert.Contains(t, out, "could not be resolved")

	_, err := tryCmd(t, "band", src, "--mode", "percentile", "--low", "90", "--high", "10")
	assert.Error(t, err)
}

func TestCLI_AnomaliesAndCorrelate(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)

	out := runCmd(t, "anomalies", src, "--code-col", "product_code", "--fit-window", "6")
	assert.Contains(t, out, "[ANOMALIES]")
	assert.Contains(t, out, "2023-09 C Gamma")

	out = runCmd(t, "correlate", src, "--code-col", "product_code", "--metrics", "year_sum,yoy,slope_beta")
	assert.Contains(t, out, "[CORRELATIONS (pearson)]")
	assert.Contains(t, out, "- year_sum ~ yoy:")

	out = runCmd(t, "correlate", src, "--code-col", "product_code", "--mode", "sku", "--method", "spearman", "--period", "24")
	assert.Contains(t, out, "[CORRELATIONS (spearman)]")

	_, err := tryCmd(t, "correlate", src, "--mode", "nope")
	assert.Error(t, err)
}

func TestCLI_ProjectWorkflow(t *testing.T) {
	home := setupHome(t)
	src := filepath.Join(home, "sales.csv")
	writeSales(t, src)

	runCmd(t, "init", "shop", "-d", "shop sales")
	out := runCmd(t, "add", "-p", "shop", src, "--code-col", "product_code", "--desc", "export")
	assert.Contains(t, out, "✓ Dataset added: sales.csv (3 products, 2022-01..2024-02)")

	out = runCmd(t, "list", "--projects")
	assert.Contains(t, out, "- shop")
	out = runCmd(t, "list", "--datasets", "-p", "shop")
	assert.Contains(t, out, "sales.csv (3 products")

	out = runCmd(t, "analyze", "-p", "shop")
	assert.Contains(t, out, "[OVERVIEW 2024-02]")
	assert.NotContains(t, out, "[DATASET SUMMARY]")

	out = runCmd(t, "project", "show", "-p", "shop")
	assert.Contains(t, out, "Datasets: 1")

	_, err := tryCmd(t, "init", "shop")
	assert.Error(t, err, "init must refuse an existing project")
	_, err = tryCmd(t, "analyze", src, "-p", "shop")
	assert.Error(t, err, "file and project are exclusive")
}

func TestCLI_AnalyzeBatch(t *testing.T) {
	home := setupHome(t)
	writeSales(t, filepath.Join(home, "d1", "sales.csv"))
	writeSales(t, filepath.Join(home, "d2", "sales.csv"))
	outDir := filepath.Join(home, "summaries")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "sales.csv"), "--code-col", "product_code", "--out-dir", outDir)
	assert.Contains(t, out, "[1/2] Processing sales.csv...")
	assert.Contains(t, out, "[2/2] Processing sales.csv...")

	for _, name := range []string{"sales.summary.md", "sales__2.summary.md"} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(b), "[OVERVIEW 2024-02]")
	}

	runCmd(t, "init", "shop")
	_, err := tryCmd(t, "analyze-batch", filepath.Join(home, "d1", "sales.csv"), "-p", "shop", "--decimal", "bogus")
	assert.ErrorContains(t, err, "unsupported --decimal")
}

func TestCLI_Config(t *testing.T) {
	home := setupHome(t)

	runCmd(t, "config", "init")
	_, err := os.Stat(filepath.Join(home, ".yearlens", "config.yaml"))
	require.NoError(t, err)
	_, err = tryCmd(t, "config", "init")
	assert.Error(t, err)

	runCmd(t, "config", "set", "window", "6")
	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "window: 6")

	_, err = tryCmd(t, "config", "set", "corr_method", "kendall")
	assert.Error(t, err)
}
