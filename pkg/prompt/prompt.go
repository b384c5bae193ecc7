// Package prompt collects answers from the user. Orchestrators depend on the
// Input interface only so that they can be driven by a real terminal or by
// canned answers in tests.
package prompt

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// ErrAborted is returned when the user interrupts a prompt
var ErrAborted = errors.New("prompt aborted")

// descriptionWidth bounds the description shown next to a skill name
const descriptionWidth = 60

// Choice is a selectable option
type Choice struct {
	Label string
	Value string
}

// TextRequest describes a free-text question
type TextRequest struct {
	Message  string
	Default  string
	Validate func(string) error // Optional; a non-nil error re-prompts
}

// Input asks the user questions
type Input interface {
	Text(ctx context.Context, req TextRequest) (string, error)
	Confirm(ctx context.Context, message string, def bool) (bool, error)
	Select(ctx context.Context, message string, choices []Choice) (string, error)
	MultiSelect(ctx context.Context, message string, choices []Choice) ([]string, error)
}

// SkillChoices renders skills as "<name> - <description>" choices
func SkillChoices(list []skills.Skill) []Choice {
	choices := make([]Choice, 0, len(list))
	for _, s := range list {
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s - %s", s.Name, skills.Truncate(s.Description, descriptionWidth)),
			Value: s.Name,
		})
	}
	return choices
}

// SelectSkills lets the user pick skills. When allowAll is set the user is
// first offered to take every skill at once.
func SelectSkills(ctx context.Context, in Input, list []skills.Skill, message string, allowAll bool) ([]string, error) {
	if allowAll {
		all, err := in.Confirm(ctx, "Select all skills?", false)
		if err != nil {
			return nil, err
		}
		if all {
			return skills.Names(list), nil
		}
	}
	return in.MultiSelect(ctx, message, SkillChoices(list))
}

// InstalledName names an installed skill, adding its directory when that
// differs from the declared name
func InstalledName(s skills.Skill) string {
	dir := filepath.Base(s.Path)
	if dir == s.Name {
		return s.Name
	}
	return fmt.Sprintf("%s (%s/)", s.Name, dir)
}

// InstalledSkillChoices renders installed skills as choices keyed by their
// directory, which stays unique when descriptors share a name
func InstalledSkillChoices(list []skills.Skill) []Choice {
	choices := make([]Choice, 0, len(list))
	for _, s := range list {
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s - %s", InstalledName(s), skills.Truncate(s.Description, descriptionWidth)),
			Value: filepath.Base(s.Path),
		})
	}
	return choices
}

// SelectInstalledSkills lets the user pick installed skills and returns
// their directory names
func SelectInstalledSkills(ctx context.Context, in Input, list []skills.Skill, message string) ([]string, error) {
	all, err := in.Confirm(ctx, "Select all skills?", false)
	if err != nil {
		return nil, err
	}
	if !all {
		return in.MultiSelect(ctx, message, InstalledSkillChoices(list))
	}
	dirs := make([]string, 0, len(list))
	for _, s := range list {
		dirs = append(dirs, filepath.Base(s.Path))
	}
	return dirs, nil
}

// SelectSkill lets the user pick exactly one skill
func SelectSkill(ctx context.Context, in Input, list []skills.Skill, message string) (string, error) {
	return in.Select(ctx, message, SkillChoices(list))
}

// ScopeChoices lists the installation scopes
func ScopeChoices() []Choice {
	return []Choice{
		{Label: "Project (.claude/skills/)", Value: string(config.ScopeProject)},
		{Label: "Personal (~/.claude/skills/)", Value: string(config.ScopePersonal)},
	}
}

// SelectScope asks for an installation scope
func SelectScope(ctx context.Context, in Input) (config.Scope, error) {
	answer, err := in.Select(ctx, "Select installation scope:", ScopeChoices())
	if err != nil {
		return "", err
	}
	return config.ParseScope(answer)
}
