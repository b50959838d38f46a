package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	scenenarrator "github.com/menta2k/scene-narrator"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "scene-narrator %s (%s)\n", scenenarrator.GetVersion(), runtime.Version())
			return nil
		},
	}
}
