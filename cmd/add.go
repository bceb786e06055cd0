package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	addIn      inputFlags
	addDocDesc string
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Normalize a table and store it in a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		if addIn.project == "" {
			return fmt.Errorf("--project is required")
		}
		p, err := loadProjectByName(addIn.project)
		if err != nil {
			return err
		}
		ropt, err := addIn.readerOptions()
		if err != nil {
			return err
		}
		nopt, err := addIn.normalizeOptions(settings())
		if err != nil {
			return err
		}
		d, err := p.AddDataset(file, addDocDesc, ropt, nopt)
		if err != nil {
			return err
		}
		if err := p.Save(); err != nil {
			return err
		}
		commandLog(cmd).WithFields(logrus.Fields{
			"project":  p.Name,
			"dataset":  d.ID,
			"products": d.Report.Products,
		}).Info("dataset stored")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dataset added: %s (%d products, %s..%s)\n",
			d.Name, d.Report.Products, d.Report.FirstMonth, d.Report.LastMonth)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addIn.register(addCmd)
	addCmd.Flags().StringVar(&addDocDesc, "desc", "", "dataset description")
}
