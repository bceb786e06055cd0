package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/report"
	"github.com/KaramelBytes/yearlens/internal/utils"
)

var (
	ingIn       inputFlags
	ingJSONPath string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Check a table's structure and data quality without analyzing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := ingIn.load(cmd, args)
		if err != nil {
			return err
		}
		if ingJSONPath != "" {
			if err := utils.WriteJSON(ingJSONPath, res.Report); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote quality report to %s\n", ingJSONPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), report.IngestMarkdown(res.Report))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingIn.register(ingestCmd)
	ingestCmd.Flags().StringVar(&ingJSONPath, "json", "", "write the quality report as JSON instead of printing it")
}
