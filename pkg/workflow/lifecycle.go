package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/prompt"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// packagedSkills splits source skills by whether a package has been built
func (r *Runner) packagedSkills() (available []skills.Skill, missing []string, err error) {
	list, err := skills.ListSourceSkills(r.Paths)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range list {
		if skills.PackagedSkillExists(r.Paths, s.Name) {
			available = append(available, s)
		} else {
			missing = append(missing, s.Name)
		}
	}
	return available, missing, nil
}

// Install installs packaged skills into a scope chosen by the user
func (r *Runner) Install(ctx context.Context) error {
	p := r.Presenter
	p.Info(fmt.Sprintf("Install skills from %s/", r.Paths.DistDir))

	available, missing, err := r.packagedSkills()
	if err != nil {
		return err
	}
	if len(available) == 0 && len(missing) == 0 {
		return ErrNoSkills
	}

	if len(missing) > 0 {
		p.Warning(`The following skills have not been packaged (run "skillsmith build" first):`)
		r.listItems(missing)
		p.Blank()
	}
	if len(available) == 0 {
		return ErrNoPackages
	}

	selected, err := prompt.SelectSkills(ctx, r.Input, available, "Select skills to install:", true)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		p.Info("No skills selected.")
		return nil
	}

	scope, err := prompt.SelectScope(ctx, r.Input)
	if err != nil {
		return err
	}

	p.Blank()
	p.Info(fmt.Sprintf("Installing %d skill(s) to %s scope:", len(selected), scope))
	r.listItems(selected)
	p.Blank()

	proceed, err := r.Input.Confirm(ctx, "Proceed with installation?", true)
	if err != nil {
		return err
	}
	if !proceed {
		p.Info("Cancelled.")
		return nil
	}

	var errs *multierror.Error
	succeeded := 0
	for _, name := range selected {
		_, err := r.Manager.Install(ctx, manager.InstallOptions{
			File:  skills.PackagedSkillPath(r.Paths, name),
			Scope: scope,
			Force: true,
		})
		if err != nil {
			p.Failure(fmt.Sprintf("Failed to install %s: %v", name, err))
			errs = multierror.Append(errs, errors.Wrap(err, name))
			continue
		}
		p.Success("Installed: " + name)
		succeeded++
	}

	failed := len(selected) - succeeded
	p.Blank()
	p.Info(fmt.Sprintf("Installation complete: %d succeeded, %d failed", succeeded, failed))

	if failed > 0 {
		return &FailureError{Op: "install", Failed: failed, Total: len(selected), Errs: errs}
	}
	return nil
}

// installedScopes returns the scopes a skill directory exists in
func (r *Runner) installedScopes(name string) []config.Scope {
	var scopes []config.Scope
	for _, scope := range config.Scopes {
		info, err := os.Stat(filepath.Join(r.Paths.SkillsDir(scope), name))
		if err == nil && info.IsDir() {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// Update replaces an installed skill with its freshly built package. The
// scope is the one the skill is installed in; the user is only asked when
// it is installed in both.
func (r *Runner) Update(ctx context.Context) error {
	p := r.Presenter
	p.Info(fmt.Sprintf("Update an installed skill from %s/", r.Paths.DistDir))

	available, _, err := r.packagedSkills()
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return ErrNoPackages
	}

	name, err := prompt.SelectSkill(ctx, r.Input, available, "Select skill to update:")
	if err != nil {
		return err
	}

	var scope config.Scope
	switch scopes := r.installedScopes(name); len(scopes) {
	case 0:
		return errors.Errorf(`skill %q is not installed, run "skillsmith install" first`, name)
	case 1:
		scope = scopes[0]
	default:
		if scope, err = prompt.SelectScope(ctx, r.Input); err != nil {
			return err
		}
	}

	opts := manager.UpdateOptions{
		Name:  name,
		File:  skills.PackagedSkillPath(r.Paths, name),
		Scope: scope,
	}

	p.Blank()
	p.Info(fmt.Sprintf("Updating skill %q in %s scope", name, scope))
	p.Info("Package: " + opts.File)
	p.Blank()

	if !p.IsQuiet() {
		r.showDescriptorDiff(ctx, opts)
	}

	proceed, err := r.Input.Confirm(ctx, "Proceed with update?", true)
	if err != nil {
		return err
	}
	if !proceed {
		p.Info("Cancelled.")
		return nil
	}

	result, err := r.Manager.Update(ctx, opts)
	if err != nil {
		p.Failure(fmt.Sprintf("Failed to update %s: %v", name, err))
		return &FailureError{Op: "update", Failed: 1, Total: 1, Errs: multierror.Append(nil, err)}
	}

	p.Success("Successfully updated: " + name)
	if result.PreviousVersion != "" || result.NewVersion != "" {
		p.Info(fmt.Sprintf("Version: %s -> %s", versionOrUnknown(result.PreviousVersion), versionOrUnknown(result.NewVersion)))
	}
	return nil
}

// showDescriptorDiff previews the SKILL.md changes an update would apply
func (r *Runner) showDescriptorDiff(ctx context.Context, opts manager.UpdateOptions) {
	p := r.Presenter
	diff, err := r.Manager.DescriptorDiff(ctx, opts)
	switch {
	case err != nil:
		logger.G(ctx).WithError(err).WithField("skill", opts.Name).Warn("failed to compare SKILL.md with the package")
	case diff == "":
		p.Info("SKILL.md is unchanged")
		p.Blank()
	default:
		p.Info("Changes to SKILL.md:")
		p.Info(strings.TrimRight(diff, "\n"))
		p.Blank()
	}
}

func versionOrUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

// Uninstall removes installed skills from a scope chosen by the user. The
// run fails when the removal call errors, or when nothing was removed and
// some names were not found.
func (r *Runner) Uninstall(ctx context.Context) error {
	p := r.Presenter
	p.Info("Uninstall installed skills")

	scope, err := prompt.SelectScope(ctx, r.Input)
	if err != nil {
		return err
	}

	installed := skills.ListInstalledSkills(r.Paths, scope)
	if len(installed) == 0 {
		p.Warning(fmt.Sprintf("No skills installed in %s scope.", scope))
		return nil
	}

	p.Info(fmt.Sprintf("Found %d installed skill(s) in %s scope", len(installed), scope))
	p.Blank()

	// Installed skills are addressed by directory, which stays unique when
	// descriptors are stale or share a name.
	selected, err := prompt.SelectInstalledSkills(ctx, r.Input, installed, "Select skills to uninstall:")
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		p.Info("No skills selected.")
		return nil
	}

	names := make(map[string]string, len(installed))
	for _, s := range installed {
		names[filepath.Base(s.Path)] = prompt.InstalledName(s)
	}
	nameOf := func(dir string) string {
		if name, ok := names[dir]; ok {
			return name
		}
		return dir
	}

	p.Blank()
	p.Warning(fmt.Sprintf("You are about to uninstall %d skill(s):", len(selected)))
	for _, dir := range selected {
		p.Item(nameOf(dir))
	}
	p.Blank()

	proceed, err := r.Input.Confirm(ctx, "Are you sure you want to uninstall these skills?", false)
	if err != nil {
		return err
	}
	if !proceed {
		p.Info("Cancelled.")
		return nil
	}

	result, err := r.Manager.Uninstall(ctx, manager.UninstallOptions{
		Names: selected,
		Scope: scope,
		Force: true,
	})
	if result == nil {
		result = &manager.UninstallResult{}
	}

	for _, dir := range result.Removed {
		p.Success("Uninstalled: " + nameOf(dir))
	}
	for _, dir := range result.NotFound {
		p.Failure("Not found: " + nameOf(dir))
	}
	if err != nil {
		p.Failure(fmt.Sprintf("Failed to uninstall: %v", err))
	}

	failed := len(selected) - len(result.Removed)
	p.Blank()
	p.Info(fmt.Sprintf("Uninstallation complete: %d succeeded, %d failed", len(result.Removed), failed))

	if err != nil || (len(result.Removed) == 0 && len(result.NotFound) > 0) {
		errs := multierror.Append(nil, err)
		for _, dir := range result.NotFound {
			errs = multierror.Append(errs, errors.Errorf("%s: not found", nameOf(dir)))
		}
		return &FailureError{Op: "uninstall", Failed: failed, Total: len(selected), Errs: errs}
	}
	return nil
}
