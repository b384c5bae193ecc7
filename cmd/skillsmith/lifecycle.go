package main

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install packaged skills",
	Long: `Interactively select packaged skills from the dist directory and install them into
the project or personal scope. Existing installs of the selected skills are replaced.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runner, err := newRunner()
		exitOnError(ctx, err, "Failed to load configuration")
		exitOnError(ctx, runner.Install(ctx), "Install failed")
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an installed skill from its package",
	Long: `Interactively select a packaged skill and replace its installed copy. The scope is
the one the skill is installed in; it is only asked for when the skill is installed
in both scopes. The previous install is restored if the update fails.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runner, err := newRunner()
		exitOnError(ctx, err, "Failed to load configuration")
		exitOnError(ctx, runner.Update(ctx), "Update failed")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall installed skills",
	Long:  `Interactively select installed skills in a scope and remove them.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runner, err := newRunner()
		exitOnError(ctx, err, "Failed to load configuration")
		exitOnError(ctx, runner.Uninstall(ctx), "Uninstall failed")
	},
}
