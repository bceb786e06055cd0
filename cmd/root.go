package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/yearlens/internal/config"
	"github.com/KaramelBytes/yearlens/internal/logging"
	"github.com/KaramelBytes/yearlens/internal/metrics"
)

var (
	// Global flags
	cfgFile         string
	debug           bool
	flagLogLevel    string
	flagLogJSON     bool
	flagWorkers     int
	flagMetricsFile string

	// Loaded configuration
	cfg *cfgpkg.Global

	logger   = logging.Discard()
	registry = prometheus.NewRegistry()
)

var rootCmd = &cobra.Command{
	Use:   "yearlens",
	Short: "yearlens: rolling 12-month analytics for monthly product sales",
	Long: `yearlens reads wide monthly sales tables (CSV/TSV/XLSX, one row per product,
one column per month) and derives trailing year totals, YoY, trends, anomalies,
correlations, concentration and threshold alerts.`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if flagMetricsFile == "" {
			return nil
		}
		return metrics.WriteTextfile(flagMetricsFile, registry)
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.yearlens/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (same as --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "log as JSON (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "per-product worker count, 0 = sequential (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if f.Changed("log-json") {
		cfg.LogJSON = flagLogJSON
	}
	if f.Changed("workers") && flagWorkers >= 0 {
		cfg.Workers = flagWorkers
	}

	l, err := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; using info\n", err)
		l, _ = logging.New("info", cfg.LogJSON)
	}
	logger = l

	if flagMetricsFile != "" {
		if err := metrics.Register(registry); err != nil {
			logger.WithError(err).Warn("metrics registration failed")
		}
	}
}

// settings returns the loaded configuration, or defaults when commands run
// without OnInitialize (tests calling rootCmd.Execute directly still get it).
func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

func commandLog(cmd *cobra.Command) *logrus.Entry {
	return logger.WithField("command", cmd.Name())
}
