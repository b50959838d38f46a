package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/menta2k/scene-narrator/internal/config"
	"github.com/menta2k/scene-narrator/internal/utils"
	"github.com/menta2k/scene-narrator/pkg/pregen"
	"github.com/menta2k/scene-narrator/pkg/ruler"
	"github.com/menta2k/scene-narrator/pkg/speech"
)

func newPregenCommand(ctx *commandContext) *cobra.Command {
	var dir, tablePath string
	var classes []string
	var workers int
	var dryRun, skipExisting bool

	cmd := &cobra.Command{
		Use:   "pregen",
		Short: "Render every narration phrase to an audio file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor(cmd)

			pgCfg, err := cfg.PregenConfig()
			if err != nil {
				return err
			}
			if dir != "" {
				pgCfg.Dir = dir
			}
			if workers > 0 {
				pgCfg.Workers = workers
			}
			if skipExisting {
				pgCfg.SkipExisting = true
			}
			if len(classes) == 0 {
				classes, err = narrationClasses(cfg, tablePath)
				if err != nil {
					return err
				}
			}

			var opts []speech.Option
			if cfg.Pregen.TTSBaseURL != "" {
				opts = append(opts, speech.WithBaseURL(cfg.Pregen.TTSBaseURL))
			}
			gen := pregen.New(speech.NewGoogleTranslate(opts...), pgCfg, logger)

			if dryRun {
				jobs, err := gen.Plan(classes)
				if err != nil {
					return err
				}
				if ctx.wantJSON(cmd) {
					return writeJSON(cmd, jobs)
				}
				for _, j := range jobs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", j.Path, j.Text)
				}
				return nil
			}

			report, runErr := gen.Run(cmd.Context(), classes)
			if report == nil {
				return runErr
			}

			if ctx.wantJSON(cmd) {
				failed := make([]map[string]string, 0, len(report.Failed))
				for _, f := range report.Failed {
					failed = append(failed, map[string]string{"name": f.Name, "error": f.Err.Error()})
				}
				if err := writeJSON(cmd, map[string]any{
					"run_id":    report.RunID,
					"dir":       pgCfg.Dir,
					"total":     report.Total,
					"generated": report.Generated,
					"skipped":   report.Skipped,
					"failed":    failed,
					"duration":  report.Duration.String(),
				}); err != nil {
					return err
				}
				return runErr
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Total", "Generated", "Skipped", "Failed", "Duration"},
				[][]string{{
					report.RunID,
					strconv.Itoa(report.Total),
					strconv.Itoa(report.Generated),
					strconv.Itoa(report.Skipped),
					strconv.Itoa(len(report.Failed)),
					report.Duration.Round(time.Millisecond).String(),
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return runErr
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Audio output directory")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "Class labels to render (repeatable)")
	cmd.Flags().StringVar(&tablePath, "table", "", "Fitted size table whose classes are rendered")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent synthesis requests")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the phrases without synthesizing")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Keep audio files that already exist")
	return cmd
}

// narrationClasses returns the vocabulary describe narrates with: the fitted
// table's labels when the table exists, the configured labels otherwise.
func narrationClasses(cfg *config.Config, tablePath string) ([]string, error) {
	if tablePath == "" {
		tablePath = cfg.Ruler.Table
	}
	if !utils.FileExists(tablePath) {
		return cfg.Ruler.ClassLabels, nil
	}
	table, err := ruler.LoadTable(tablePath)
	if err != nil {
		return nil, err
	}
	return table.Labels(), nil
}
