package manager

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TemplateKind selects the SKILL.md flavour produced by Scaffold
type TemplateKind string

// Supported template kinds
const (
	TemplateBasic    TemplateKind = "basic"
	TemplateForked   TemplateKind = "forked"
	TemplateInternal TemplateKind = "internal"
	TemplateAgent    TemplateKind = "agent"
)

// TemplateKinds lists every template kind in prompt order
var TemplateKinds = []TemplateKind{TemplateBasic, TemplateForked, TemplateInternal, TemplateAgent}

// MemoryScopes lists the accepted values of the memory frontmatter key
var MemoryScopes = []string{"user", "project", "local"}

const defaultAgentModel = "sonnet"

// TemplateOptions refines the generated skill
type TemplateOptions struct {
	Kind         TemplateKind
	Minimal      bool
	Memory       string
	Model        string
	ArgumentHint string
}

// ScaffoldOptions configures Scaffold
type ScaffoldOptions struct {
	Name         string
	Description  string
	Output       string // Parent directory; the skill is created at Output/Name
	AllowedTools []string
	Force        bool
	Template     *TemplateOptions
}

// ScaffoldResult describes a scaffolded skill
type ScaffoldResult struct {
	Path  string
	Files []string // Created files, relative to Path
}

var resourceDirs = []string{"scripts", "references", "assets"}

var bodyTemplate = template.Must(template.New("skill").Parse(`# {{ .Title }}

{{ .Description }}
{{- if .Forked }}

This skill runs in a forked context. Only its final answer is returned to the caller.
{{- end }}
{{- if .Internal }}

This skill is not user-invocable. It is loaded automatically when the task matches its description.
{{- end }}
{{- if .ArgumentHint }}

## Arguments

Invoke with: ` + "`{{ .ArgumentHint }}`" + `
{{- end }}

## Instructions

1. Describe the first step.
2. Describe the next step.
{{- if not .Minimal }}

## Resources

- ` + "`scripts/`" + `: executable helpers the skill may run
- ` + "`references/`" + `: documentation loaded on demand
- ` + "`assets/`" + `: templates and files used in output
{{- end }}
`))

type bodyData struct {
	Title        string
	Description  string
	Forked       bool
	Internal     bool
	Minimal      bool
	ArgumentHint string
}

// Scaffold creates a new skill directory with a SKILL.md and, unless the
// minimal template is requested, empty scripts/, references/ and assets/
// directories.
func (m *Manager) Scaffold(ctx context.Context, opts ScaffoldOptions) (*ScaffoldResult, error) {
	name := strings.TrimSpace(opts.Name)
	description := strings.TrimSpace(opts.Description)
	if err := skills.ValidateName(name); err != nil {
		return nil, err
	}
	if err := skills.ValidateDescription(description); err != nil {
		return nil, err
	}

	tmpl := TemplateOptions{Kind: TemplateBasic}
	if opts.Template != nil {
		tmpl = *opts.Template
		if tmpl.Kind == "" {
			tmpl.Kind = TemplateBasic
		}
	}
	if err := tmpl.validate(); err != nil {
		return nil, err
	}

	content, err := renderSkill(name, description, opts.AllowedTools, tmpl)
	if err != nil {
		return nil, err
	}

	output := opts.Output
	if output == "" {
		output = m.paths.SourceDir
	}
	unlock, err := lockDir(ctx, output)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target := filepath.Join(output, name)
	if _, err := os.Stat(target); err == nil {
		if !opts.Force {
			return nil, errors.Errorf("skill directory %s already exists (use force to overwrite)", target)
		}
		if err := os.RemoveAll(target); err != nil {
			return nil, errors.Wrapf(err, "failed to remove existing skill directory %s", target)
		}
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create skill directory %s", target)
	}

	files := []string{skills.SkillFileName}
	if err := os.WriteFile(filepath.Join(target, skills.SkillFileName), content, 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %s", skills.SkillFileName)
	}

	if !tmpl.Minimal {
		for _, dir := range resourceDirs {
			if err := os.MkdirAll(filepath.Join(target, dir), 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create %s directory", dir)
			}
			keep := filepath.Join(dir, ".gitkeep")
			if err := os.WriteFile(filepath.Join(target, keep), nil, 0o644); err != nil {
				return nil, errors.Wrapf(err, "failed to write %s", keep)
			}
			files = append(files, filepath.ToSlash(keep))
		}
	}

	logger.G(ctx).WithField("skill", name).
		WithField("path", target).
		WithField("template", tmpl.Kind).
		Info("scaffolded skill")

	return &ScaffoldResult{Path: target, Files: files}, nil
}

func (t TemplateOptions) validate() error {
	switch t.Kind {
	case TemplateBasic, TemplateForked, TemplateInternal, TemplateAgent:
	default:
		return errors.Errorf("unknown template %q", t.Kind)
	}
	if t.Memory != "" {
		valid := false
		for _, m := range MemoryScopes {
			if t.Memory == m {
				valid = true
			}
		}
		if !valid {
			return errors.Errorf("invalid memory scope %q: expected one of %s", t.Memory, strings.Join(MemoryScopes, ", "))
		}
	}
	return nil
}

func renderSkill(name, description string, allowedTools []string, tmpl TemplateOptions) ([]byte, error) {
	fm := skills.Frontmatter{
		Name:         name,
		Description:  description,
		AllowedTools: allowedTools,
		Memory:       tmpl.Memory,
		ArgumentHint: tmpl.ArgumentHint,
	}
	switch tmpl.Kind {
	case TemplateForked:
		fm.Context = "fork"
	case TemplateInternal:
		userInvocable := false
		fm.UserInvocable = &userInvocable
	case TemplateAgent:
		fm.Agent = "general-purpose"
		fm.Model = tmpl.Model
		if fm.Model == "" {
			fm.Model = defaultAgentModel
		}
	}
	if tmpl.Kind != TemplateAgent && tmpl.Model != "" {
		fm.Model = tmpl.Model
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, errors.Wrap(err, "failed to encode frontmatter")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to encode frontmatter")
	}
	buf.WriteString("---\n\n")

	err := bodyTemplate.Execute(&buf, bodyData{
		Title:        titleCase(name),
		Description:  description,
		Forked:       tmpl.Kind == TemplateForked,
		Internal:     tmpl.Kind == TemplateInternal,
		Minimal:      tmpl.Minimal,
		ArgumentHint: tmpl.ArgumentHint,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to render SKILL.md body")
	}
	return buf.Bytes(), nil
}

// titleCase turns "my-skill" into "My Skill"
func titleCase(name string) string {
	parts := strings.Split(name, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
