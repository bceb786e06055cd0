package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/report"
	"github.com/KaramelBytes/yearlens/internal/utils"
)

var (
	abIn           inputFlags
	abOutDir       string
	abTop          int
	abGrowthWindow int
	abDescription  string
	abQuiet        bool
	abKeepGoing    bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files with progress and optional project storage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		if abOutDir != "" {
			if err := utils.EnsureDir(abOutDir); err != nil {
				return err
			}
		}
		// Files are analyzed one by one; --project only decides where datasets are stored.
		storeIn := abIn.project
		abIn.project = ""
		defer func() { abIn.project = storeIn }()

		log := commandLog(cmd)
		out := cmd.OutOrStdout()
		c := settings()
		storeRead, err := abIn.readerOptions()
		if err != nil {
			return err
		}
		storeNorm, err := abIn.normalizeOptions(c)
		if err != nil {
			return err
		}
		total := len(files)
		failed := 0
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			res, err := abIn.load(cmd, []string{path})
			if err != nil {
				if !abKeepGoing {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				failed++
				log.WithError(err).WithField("file", path).Warn("skipping file")
				continue
			}
			if !res.HasLatest {
				log.WithField("file", path).Warn("no months found")
				continue
			}
			dash := buildDashboard(res, res.Latest, abTop, abGrowthWindow, c.CurrencyUnit)
			md := report.IngestMarkdown(res.Report) + "\n" + dash.Markdown()

			if storeIn != "" {
				p, err := loadProjectByName(storeIn)
				if err != nil {
					return err
				}
				if _, err := p.AddDataset(path, abDescription, storeRead, storeNorm); err != nil {
					return err
				}
				if err := p.Save(); err != nil {
					return err
				}
				if !abQuiet {
					fmt.Fprintf(out, "✓ Stored %s in project '%s'\n", filepath.Base(path), p.Name)
				}
			}

			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, md)
				}
				continue
			}
			base := filepath.Base(path)
			stem := utils.Slug(strings.TrimSuffix(base, filepath.Ext(base)), "table")
			if abIn.sheet != "" {
				stem += "__sheet-" + utils.Slug(abIn.sheet, "sheet")
			}
			outFile := utils.UniquePath(abOutDir, stem, ".summary.md")
			if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			log.WithFields(logrus.Fields{"file": path, "summary": outFile}).Debug("summary written")
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", filepath.Base(outFile))
			}
		}
		if failed > 0 {
			fmt.Fprintf(out, "⚠ %d of %d files failed\n", failed, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abIn.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for per-file Markdown summaries (printed if omitted)")
	analyzeBatchCmd.Flags().IntVar(&abTop, "top", 5, "number of products in each quick pick")
	analyzeBatchCmd.Flags().IntVar(&abGrowthWindow, "growth-window", 6, "months behind the top growth pick")
	analyzeBatchCmd.Flags().StringVar(&abDescription, "desc", "", "dataset description when storing in a project")
	analyzeBatchCmd.Flags().BoolVarP(&abQuiet, "quiet", "q", false, "suppress progress and summaries on stdout")
	analyzeBatchCmd.Flags().BoolVar(&abKeepGoing, "keep-going", false, "skip files that fail instead of stopping")
}
