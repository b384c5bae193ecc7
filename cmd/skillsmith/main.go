package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/presenter"
	"github.com/jingkaihe/skillsmith/pkg/prompt"
	"github.com/jingkaihe/skillsmith/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "skillsmith",
	Short: "Build, scaffold and install Claude skills",
	Long: `skillsmith manages a repository of Claude skills. Skills are authored under the
source directory, packaged into .skill archives in the dist directory and installed
into either the project scope (.claude/skills/) or the personal scope (~/.claude/skills/).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		err := logger.Setup(logger.Options{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
		})
		if err != nil {
			return err
		}
		presenter.SetQuiet(viper.GetBool("quiet"))
		ctx := logger.WithCommand(cmd.Context(), cmd.Name())
		cmd.SetContext(ctx)
		logger.G(ctx).WithFields(changedFlags(cmd)).Debug("starting command")
		return nil
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	config.InitViper()

	flags := rootCmd.PersistentFlags()
	flags.String("source-dir", config.DefaultSourceDir, "Directory containing skill sources")
	flags.String("dist-dir", config.DefaultDistDir, "Directory packaged skills are written to")
	flags.String("project-dir", config.DefaultProjectSkillsDir, "Project scope install directory")
	flags.String("personal-dir", "", "Personal scope install directory (default ~/.claude/skills)")
	flags.BoolP("quiet", "q", false, "Only print failures and errors")
	flags.String("log-level", "warn", "Log level (panic, fatal, error, warn, info, debug, trace)")
	flags.String("log-format", "fmt", "Log format (fmt or json)")

	viper.BindPFlag("source_dir", flags.Lookup("source-dir"))
	viper.BindPFlag("dist_dir", flags.Lookup("dist-dir"))
	viper.BindPFlag("project_skills_dir", flags.Lookup("project-dir"))
	viper.BindPFlag("personal_skills_dir", flags.Lookup("personal-dir"))
	viper.BindPFlag("quiet", flags.Lookup("quiet"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(scaffoldCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// changedFlags collects the flags set explicitly on the command line
func changedFlags(cmd *cobra.Command) logrus.Fields {
	fields := logrus.Fields{}
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		fields["flag."+flag.Name] = flag.Value.String()
	})
	return fields
}

// newRunner wires the workflows to the configured paths and the terminal
func newRunner() (*workflow.Runner, error) {
	paths, err := config.Load()
	if err != nil {
		return nil, err
	}
	return workflow.NewRunner(paths, manager.New(paths), prompt.NewTerminal(), presenter.Default()), nil
}

// exitOnError reports err and terminates the process with status 1. Per-item
// failures have already been reported by the workflow, so only the summary
// is logged for them.
func exitOnError(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}

	var failure *workflow.FailureError
	switch {
	case errors.As(err, &failure):
		logger.G(ctx).WithError(failure.Unwrap()).Debug(failure.Error())
	case errors.Is(err, prompt.ErrAborted), errors.Is(err, context.Canceled):
		presenter.Warning("Aborted.")
	default:
		presenter.Error(err, msg)
	}
	os.Exit(1)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		cancel()
		os.Exit(1)
	}
}
