package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/menta2k/scene-narrator/pkg/ruler"
)

func newFitCommand(ctx *commandContext) *cobra.Command {
	var datasetPath, outPath string
	var classes []string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit per-class size boundaries from a labeled dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor(cmd)

			if datasetPath == "" {
				datasetPath = cfg.Ruler.Dataset
			}
			if outPath == "" {
				outPath = cfg.Ruler.Table
			}
			if len(classes) == 0 {
				classes = cfg.Ruler.ClassLabels
			}

			dataset, err := ruler.LoadDataset(datasetPath)
			if err != nil {
				return err
			}
			table, err := ruler.Build(dataset, classes, cfg.Ruler.Keys)
			if err != nil {
				return fmt.Errorf("fit %s: %w", datasetPath, err)
			}
			if err := table.Save(outPath); err != nil {
				return err
			}
			logger.Info("size table written", "path", outPath, "classes", len(classes), "images", len(dataset))

			stats := table.Stats()
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, map[string]any{"table": outPath, "classes": stats})
			}

			rows := make([][]string, 0, len(stats))
			for _, s := range stats {
				rows = append(rows, []string{
					s.Label,
					strconv.Itoa(s.Count),
					formatArea(s.Mean),
					formatArea(s.StdDev),
					formatArea(s.Boundaries[0]),
					formatArea(s.Boundaries[1]),
					formatArea(s.Boundaries[2]),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Class", "Objects", "Mean", "StdDev", "Q25", "Q50", "Q75"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Labeled dataset (json or yaml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Where to write the fitted table")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Class vocabulary in index order (repeatable)")
	return cmd
}

func formatArea(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
