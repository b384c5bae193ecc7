package main

import (
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Validate and package every source skill",
	Long: `Validate every skill under the source directory and package the valid ones into
<dist-dir>/<name>.skill. Every skill is attempted; the command exits non-zero if any
skill failed validation or packaging.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runner, err := newRunner()
		exitOnError(ctx, err, "Failed to load configuration")

		_, err = runner.Build(ctx)
		exitOnError(ctx, err, "Build failed")
	},
}
