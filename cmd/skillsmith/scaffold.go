package main

import (
	"strings"

	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/workflow"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type ScaffoldConfig struct {
	Name         string
	Description  string
	AllowedTools []string
	Template     string
	Minimal      bool
	Memory       string
	Model        string
	ArgumentHint string
}

func NewScaffoldConfig() *ScaffoldConfig {
	return &ScaffoldConfig{
		Template: string(manager.TemplateBasic),
	}
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold",
	Short: "Create a new skill from a template",
	Long: `Create a new skill directory under the source directory.

Without flags the skill's name, description and template options are asked for
interactively. Passing --name and --description skips the questions.

Examples:
  skillsmith scaffold
  skillsmith scaffold --name pdf-tools --description "Extract text from PDFs"
  skillsmith scaffold --name reviewer --description "Reviews diffs" --template agent --model opus`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		runner, err := newRunner()
		exitOnError(ctx, err, "Failed to load configuration")

		config := getScaffoldConfigFromFlags(cmd)
		if config.Name == "" && config.Description == "" {
			exitOnError(ctx, runner.Scaffold(ctx), "Scaffold failed")
			return
		}

		req, err := config.request()
		exitOnError(ctx, err, "Invalid scaffold options")
		exitOnError(ctx, runner.ScaffoldWith(ctx, req), "Scaffold failed")
	},
}

func init() {
	defaults := NewScaffoldConfig()
	scaffoldCmd.Flags().String("name", defaults.Name, "Skill name (hyphen-case)")
	scaffoldCmd.Flags().String("description", defaults.Description, "What the skill does and when to use it")
	scaffoldCmd.Flags().StringSlice("allowed-tools", defaults.AllowedTools, "Tools the skill may use, e.g. Read,Write,Bash")
	scaffoldCmd.Flags().String("template", defaults.Template, "Template kind (basic, forked, internal, agent)")
	scaffoldCmd.Flags().Bool("minimal", defaults.Minimal, "Only create SKILL.md")
	scaffoldCmd.Flags().String("memory", defaults.Memory, "Memory scope (user, project, local)")
	scaffoldCmd.Flags().String("model", defaults.Model, "Model for the agent template")
	scaffoldCmd.Flags().String("argument-hint", defaults.ArgumentHint, "Argument hint shown to users")
}

func getScaffoldConfigFromFlags(cmd *cobra.Command) *ScaffoldConfig {
	config := NewScaffoldConfig()
	if name, err := cmd.Flags().GetString("name"); err == nil {
		config.Name = strings.TrimSpace(name)
	}
	if description, err := cmd.Flags().GetString("description"); err == nil {
		config.Description = strings.TrimSpace(description)
	}
	if tools, err := cmd.Flags().GetStringSlice("allowed-tools"); err == nil {
		config.AllowedTools = tools
	}
	if template, err := cmd.Flags().GetString("template"); err == nil {
		config.Template = template
	}
	if minimal, err := cmd.Flags().GetBool("minimal"); err == nil {
		config.Minimal = minimal
	}
	if memory, err := cmd.Flags().GetString("memory"); err == nil {
		config.Memory = memory
	}
	if model, err := cmd.Flags().GetString("model"); err == nil {
		config.Model = model
	}
	if hint, err := cmd.Flags().GetString("argument-hint"); err == nil {
		config.ArgumentHint = hint
	}
	return config
}

// request turns the flags into a scaffold request. Template options are
// only set when they differ from the plain basic template.
func (c *ScaffoldConfig) request() (*workflow.ScaffoldRequest, error) {
	if err := workflow.ValidateSkillName(c.Name); err != nil {
		return nil, errors.Wrap(err, "--name")
	}
	if err := workflow.ValidateDescription(c.Description); err != nil {
		return nil, errors.Wrap(err, "--description")
	}

	req := &workflow.ScaffoldRequest{
		Name:        c.Name,
		Description: c.Description,
	}
	for _, tool := range c.AllowedTools {
		if tool = strings.TrimSpace(tool); tool != "" {
			req.AllowedTools = append(req.AllowedTools, tool)
		}
	}

	tmpl := manager.TemplateOptions{
		Kind:         manager.TemplateKind(c.Template),
		Minimal:      c.Minimal,
		Memory:       c.Memory,
		Model:        c.Model,
		ArgumentHint: c.ArgumentHint,
	}
	if tmpl != (manager.TemplateOptions{Kind: manager.TemplateBasic}) {
		req.Template = &tmpl
	}
	return req, nil
}
