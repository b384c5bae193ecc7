package main

import (
	"context"
	"fmt"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/presenter"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path...]",
	Short: "Validate skill directories",
	Long: `Run every validation rule against the given skill directories and print the
outcome of each rule. Without arguments every skill in the source directory is
validated. Nothing is packaged or written.

Examples:
  skillsmith validate
  skillsmith validate src/skills/pdf-tools`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		paths, err := config.Load()
		exitOnError(ctx, err, "Failed to load configuration")

		dirs := args
		if len(dirs) == 0 {
			dirs, err = sourceSkillDirs(paths)
			exitOnError(ctx, err, "Failed to discover skills")
		}

		err = validateSkillsCmd(ctx, presenter.Default(), manager.New(paths), dirs)
		exitOnError(ctx, err, "Validation failed")
	},
}

func sourceSkillDirs(paths config.Paths) ([]string, error) {
	list, err := skills.ListSourceSkills(paths)
	if err != nil {
		return nil, err
	}
	dirs := make([]string, 0, len(list))
	for _, s := range list {
		dirs = append(dirs, s.Path)
	}
	return dirs, nil
}

func validateSkillsCmd(ctx context.Context, p presenter.Presenter, m *manager.Manager, dirs []string) error {
	if len(dirs) == 0 {
		p.Warning("No skills to validate")
		return nil
	}

	invalid := 0
	for i, dir := range dirs {
		if i > 0 {
			p.Blank()
		}
		p.Section(dir)

		result, err := m.Validate(ctx, dir, manager.ValidateOptions{Detailed: true})
		if err != nil {
			p.Failure(err.Error())
			invalid++
			continue
		}

		for _, name := range result.Order {
			check := result.Checks[name]
			if check.Passed {
				p.Check(true, name)
			} else {
				p.Check(false, fmt.Sprintf("%s: %s", name, check.Error))
			}
		}
		for _, warning := range result.Warnings {
			p.Warning(warning)
		}

		if result.Valid {
			p.Info(fmt.Sprintf("Valid (%d/%d checks passed)", result.Passed(), result.Total()))
		} else {
			p.Info(fmt.Sprintf("Invalid (%d/%d checks failed)", len(result.Failed()), result.Total()))
			invalid++
		}
	}

	if invalid > 0 {
		return errors.Errorf("%d of %d skill(s) invalid", invalid, len(dirs))
	}
	return nil
}
