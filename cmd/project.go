package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/yearlens/internal/report"
)

var (
	pmProject string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Inspect or edit a project's datasets",
}

var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored quality report of every dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "[PROJECT]\nName: %s\n", p.Name)
		if p.Description != "" {
			fmt.Fprintf(out, "Description: %s\n", p.Description)
		}
		fmt.Fprintf(out, "Datasets: %d\n", len(p.Datasets))
		for _, d := range p.List() {
			fmt.Fprintf(out, "\n(dataset %s)\n", d.ID)
			fmt.Fprint(out, report.IngestMarkdown(d.Report))
		}
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "rm <dataset-id>",
	Short: "Remove a dataset from a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pmProject == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(pmProject)
		if err != nil {
			return err
		}
		if err := p.RemoveDataset(args[0]); err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed dataset %s from %s\n", args[0], p.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	projectCmd.PersistentFlags().StringVarP(&pmProject, "project", "p", "", "project name")
}
