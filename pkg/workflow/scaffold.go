package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/prompt"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// ScaffoldRequest holds everything collected for a new skill
type ScaffoldRequest struct {
	Name         string
	Description  string
	AllowedTools []string
	Template     *manager.TemplateOptions // nil keeps the basic template
}

// ValidateSkillName checks a proposed skill name
func ValidateSkillName(name string) error {
	return skills.ValidateName(name)
}

// ValidateDescription checks a proposed skill description
func ValidateDescription(description string) error {
	return skills.ValidateDescription(description)
}

var templateLabels = map[manager.TemplateKind]string{
	manager.TemplateBasic:    "Basic",
	manager.TemplateForked:   "Forked (runs in an isolated context)",
	manager.TemplateInternal: "Internal (not user-invocable)",
	manager.TemplateAgent:    "Agent (delegates to a sub-agent)",
}

const noMemory = "none"

// CollectScaffoldInputs asks every question needed to scaffold a skill.
// Name and description are re-asked until they are valid; the optional
// refinements are only asked when the user opts in.
func CollectScaffoldInputs(ctx context.Context, in prompt.Input) (*ScaffoldRequest, error) {
	name, err := in.Text(ctx, prompt.TextRequest{
		Message:  "Skill name (hyphen-case):",
		Validate: ValidateSkillName,
	})
	if err != nil {
		return nil, err
	}

	description, err := in.Text(ctx, prompt.TextRequest{
		Message:  "Description:",
		Validate: ValidateDescription,
	})
	if err != nil {
		return nil, err
	}

	req := &ScaffoldRequest{Name: name, Description: description}

	wantTools, err := in.Confirm(ctx, "Specify allowed tools? (optional)", false)
	if err != nil {
		return nil, err
	}
	if wantTools {
		tools, err := in.Text(ctx, prompt.TextRequest{Message: "Allowed tools (comma-separated, e.g., Read,Write,Bash):"})
		if err != nil {
			return nil, err
		}
		req.AllowedTools = splitTools(tools)
	}

	customize, err := in.Confirm(ctx, "Customize template options?", false)
	if err != nil {
		return nil, err
	}
	if customize {
		tmpl, err := collectTemplateOptions(ctx, in)
		if err != nil {
			return nil, err
		}
		req.Template = tmpl
	}

	return req, nil
}

func collectTemplateOptions(ctx context.Context, in prompt.Input) (*manager.TemplateOptions, error) {
	kinds := make([]prompt.Choice, 0, len(manager.TemplateKinds))
	for _, k := range manager.TemplateKinds {
		kinds = append(kinds, prompt.Choice{Label: templateLabels[k], Value: string(k)})
	}
	kind, err := in.Select(ctx, "Template:", kinds)
	if err != nil {
		return nil, err
	}
	tmpl := &manager.TemplateOptions{Kind: manager.TemplateKind(kind)}

	if tmpl.Minimal, err = in.Confirm(ctx, "Minimal (SKILL.md only, no scripts/references/assets)?", false); err != nil {
		return nil, err
	}

	memories := []prompt.Choice{{Label: "None", Value: noMemory}}
	for _, m := range manager.MemoryScopes {
		memories = append(memories, prompt.Choice{Label: strings.ToUpper(m[:1]) + m[1:], Value: m})
	}
	memory, err := in.Select(ctx, "Memory scope:", memories)
	if err != nil {
		return nil, err
	}
	if memory != noMemory {
		tmpl.Memory = memory
	}

	if tmpl.Kind == manager.TemplateAgent {
		if tmpl.Model, err = in.Text(ctx, prompt.TextRequest{Message: "Agent model:", Default: "sonnet"}); err != nil {
			return nil, err
		}
	}

	if tmpl.ArgumentHint, err = in.Text(ctx, prompt.TextRequest{Message: "Argument hint (optional):"}); err != nil {
		return nil, err
	}

	return tmpl, nil
}

func splitTools(raw string) []string {
	var tools []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tools = append(tools, t)
		}
	}
	return tools
}

// Scaffold creates a new skill in the source directory
func (r *Runner) Scaffold(ctx context.Context) error {
	p := r.Presenter
	p.Info(fmt.Sprintf("Create a new skill in %s/", r.Paths.SourceDir))

	req, err := CollectScaffoldInputs(ctx, r.Input)
	if err != nil {
		return err
	}
	return r.ScaffoldWith(ctx, req)
}

// ScaffoldWith creates a skill from already collected inputs
func (r *Runner) ScaffoldWith(ctx context.Context, req *ScaffoldRequest) error {
	p := r.Presenter

	force := false
	target := filepath.Join(r.Paths.SourceDir, req.Name)
	if _, err := os.Stat(target); err == nil {
		overwrite, err := r.Input.Confirm(ctx, fmt.Sprintf("Skill %q already exists. Overwrite?", req.Name), false)
		if err != nil {
			return err
		}
		if !overwrite {
			p.Info("Cancelled.")
			return nil
		}
		force = true
	}

	result, err := r.Manager.Scaffold(ctx, manager.ScaffoldOptions{
		Name:         req.Name,
		Description:  req.Description,
		Output:       r.Paths.SourceDir,
		AllowedTools: req.AllowedTools,
		Force:        force,
		Template:     req.Template,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create skill")
	}

	logger.G(ctx).WithField("skill", req.Name).WithField("files", len(result.Files)).Debug("scaffold complete")
	p.Success(fmt.Sprintf("Skill %q created at %s", req.Name, result.Path))
	p.Info("Files created: " + strings.Join(result.Files, ", "))
	return nil
}
