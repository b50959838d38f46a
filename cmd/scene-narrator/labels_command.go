package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/menta2k/scene-narrator/pkg/pregen"
)

func newLabelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "Show the narration vocabulary and the number of audio assets it implies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pgCfg, err := cfg.PregenConfig()
			if err != nil {
				return err
			}
			classes, err := narrationClasses(cfg, "")
			if err != nil {
				return err
			}
			jobs, err := pregen.New(nil, pgCfg, nil).Plan(classes)
			if err != nil {
				return err
			}

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, map[string]any{
					"classes":         classes,
					"labels":          cfg.Labels,
					"horizontal_only": cfg.Locator.HorizontalOnly,
					"assets":          len(jobs),
				})
			}

			rows := [][]string{
				{"class", strings.Join(classes, ", ")},
				{"distance", strings.Join(cfg.Labels.Distance, ", ")},
				{"horizontal", strings.Join(cfg.Labels.Horizontal, ", ")},
			}
			if !cfg.Locator.HorizontalOnly {
				rows = append(rows, []string{"vertical", strings.Join(cfg.Labels.Vertical, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Words"}, rows, nil))
			fmt.Fprintf(cmd.OutOrStdout(), "Audio assets: %d\n", len(jobs))
			return nil
		},
	}
}
