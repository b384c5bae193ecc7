package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/spf13/cobra"
)

type ListConfig struct {
	Scope string
	Match []string
}

func NewListConfig() *ListConfig {
	return &ListConfig{}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	Long: `List installed skills with their scope, name, directory and description.
Both scopes are listed unless --scope is given. --match keeps only the skills
whose name matches one of the given glob patterns.

Examples:
  skillsmith list
  skillsmith list --scope personal
  skillsmith list --match 'pdf-*'`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getListConfigFromFlags(cmd)

		scopes, err := config.scopes()
		exitOnError(ctx, err, "Invalid scope")

		err = listSkillsCmd(ctx, os.Stdout, scopes, config.Match)
		exitOnError(ctx, err, "Failed to list skills")
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("scope", "s", defaults.Scope, "Only list one scope (project or personal)")
	listCmd.Flags().StringSliceP("match", "m", defaults.Match, "Only list skills whose name matches a glob pattern")
}

func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	c := NewListConfig()
	if scope, err := cmd.Flags().GetString("scope"); err == nil {
		c.Scope = scope
	}
	if match, err := cmd.Flags().GetStringSlice("match"); err == nil {
		c.Match = match
	}
	return c
}

func (c *ListConfig) scopes() ([]config.Scope, error) {
	if c.Scope == "" {
		return config.Scopes, nil
	}
	scope, err := config.ParseScope(c.Scope)
	if err != nil {
		return nil, err
	}
	return []config.Scope{scope}, nil
}

func listSkillsCmd(ctx context.Context, w io.Writer, scopes []config.Scope, match []string) error {
	paths, err := config.Load()
	if err != nil {
		return err
	}
	return writeSkillTable(ctx, w, manager.New(paths), scopes, match)
}

func writeSkillTable(ctx context.Context, w io.Writer, m *manager.Manager, scopes []config.Scope, match []string) error {
	type row struct {
		scope config.Scope
		skill skills.Skill
	}

	var rows []row
	for _, scope := range scopes {
		list, err := m.List(ctx, manager.ListOptions{Scope: scope, Match: match})
		if err != nil {
			return err
		}
		for _, s := range list {
			rows = append(rows, row{scope: scope, skill: s})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No skills installed.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCOPE\tNAME\tDIRECTORY\tDESCRIPTION")
	fmt.Fprintln(tw, "-----\t----\t---------\t-----------")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.scope, r.skill.Name, r.skill.Path, skills.Truncate(r.skill.Description, 60))
	}
	return tw.Flush()
}
