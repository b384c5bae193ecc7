package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/prompt"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstall(t *testing.T) {
	env := newTestEnv(t, false, []string{"alpha", "beta"}, "project", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.writeSkill(t, "beta", "beta", "Second")
	env.build(t)

	require.NoError(t, env.runner.Install(context.Background()))

	installed := skills.ListInstalledSkills(env.paths, config.ScopeProject)
	assert.Equal(t, []string{"alpha", "beta"}, skills.Names(installed))

	out := env.out.String()
	assert.Contains(t, out, "Installing 2 skill(s) to project scope:")
	assert.Contains(t, out, "  - alpha\n")
	assert.Contains(t, out, "✓ Installed: alpha")
	assert.Contains(t, out, "✓ Installed: beta")
	assert.Contains(t, out, "Installation complete: 2 succeeded, 0 failed")
	assert.Zero(t, env.input.Remaining())
}

func TestInstallSelectAllReplacesExisting(t *testing.T) {
	env := newTestEnv(t, true, "personal", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopePersonal, "alpha")

	require.NoError(t, env.runner.Install(context.Background()))
	assert.Contains(t, env.out.String(), "Installation complete: 1 succeeded, 0 failed")
}

func TestInstallWarnsAboutUnpackagedSkills(t *testing.T) {
	env := newTestEnv(t, false, []string{"alpha"}, "project", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.writeSkill(t, "later", "later", "Not built yet")

	require.NoError(t, env.runner.Install(context.Background()))

	out := env.out.String()
	assert.Contains(t, out, "⚠ The following skills have not been packaged")
	assert.Contains(t, out, "  - later\n")
}

func TestInstallDeclined(t *testing.T) {
	env := newTestEnv(t, false, []string{"alpha"}, "project", false)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)

	require.NoError(t, env.runner.Install(context.Background()))
	assert.Contains(t, env.out.String(), "Cancelled.")
	assert.NoDirExists(t, env.paths.ProjectSkillsDir)
}

func TestInstallNothingSelected(t *testing.T) {
	env := newTestEnv(t, false, []string{})
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)

	require.NoError(t, env.runner.Install(context.Background()))
	assert.Contains(t, env.out.String(), "No skills selected.")
	assert.Equal(t, []string{"Select all skills?", "Select skills to install:"}, env.input.Asked())
}

func TestInstallFatalSetup(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, ErrNoSkills, env.runner.Install(context.Background()))

	env.writeSkill(t, "alpha", "alpha", "First")
	assert.Equal(t, ErrNoPackages, env.runner.Install(context.Background()))

	require.NoError(t, os.RemoveAll(env.paths.SourceDir))
	assert.ErrorContains(t, env.runner.Install(context.Background()), "failed to read skills directory")
}

func TestInstallPartialFailure(t *testing.T) {
	env := newTestEnv(t, true, "project", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.writeSkill(t, "beta", "beta", "Second")
	env.build(t)
	env.runner.Manager = &failingManager{
		SkillManager: env.runner.Manager,
		installErr:   map[string]error{"alpha": errors.New("permission denied")},
	}

	err := env.runner.Install(context.Background())

	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Failed)
	assert.Equal(t, 2, failure.Total)

	out := env.out.String()
	assert.Contains(t, out, "✗ Failed to install alpha: permission denied")
	assert.Contains(t, out, "✓ Installed: beta")
	assert.Contains(t, out, "Installation complete: 1 succeeded, 1 failed")
}

func TestUpdateSingleScope(t *testing.T) {
	env := newTestEnv(t, "alpha", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopePersonal, "alpha")

	env.writeSkill(t, "alpha", "alpha", "First, improved")
	env.build(t)

	require.NoError(t, env.runner.Update(context.Background()))

	skill, err := skills.LoadSkill(filepath.Join(env.paths.PersonalSkillsDir, "alpha"))
	require.NoError(t, err)
	assert.Equal(t, "First, improved", skill.Description)

	out := env.out.String()
	assert.Contains(t, out, `Updating skill "alpha" in personal scope`)
	assert.Contains(t, out, "Package: "+filepath.Join(env.paths.DistDir, "alpha.skill"))
	assert.Contains(t, out, "Changes to SKILL.md:")
	assert.Contains(t, out, "-description: First\n")
	assert.Contains(t, out, "+description: First, improved\n")
	assert.Contains(t, out, "✓ Successfully updated: alpha")
	assert.NotContains(t, env.input.Asked(), "Select installation scope:")
}

func TestUpdateBothScopesAsks(t *testing.T) {
	env := newTestEnv(t, "alpha", "project", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")
	env.install(t, config.ScopePersonal, "alpha")

	require.NoError(t, env.runner.Update(context.Background()))
	assert.Contains(t, env.input.Asked(), "Select installation scope:")
	assert.Contains(t, env.out.String(), "SKILL.md is unchanged")
	assert.Contains(t, env.out.String(), `Updating skill "alpha" in project scope`)
}

func TestUpdateQuietSkipsDiff(t *testing.T) {
	env := newTestEnv(t, "alpha", true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")

	counting := &failingManager{SkillManager: env.runner.Manager}
	env.runner.Manager = counting
	env.runner.Presenter.SetQuiet(true)

	require.NoError(t, env.runner.Update(context.Background()))
	assert.Zero(t, counting.diffCalls)
	assert.NotContains(t, env.out.String(), "SKILL.md")
}

func TestUpdateNotInstalled(t *testing.T) {
	env := newTestEnv(t, "alpha")
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)

	err := env.runner.Update(context.Background())
	assert.ErrorContains(t, err, `skill "alpha" is not installed`)
}

func TestUpdateDeclinedAndFailure(t *testing.T) {
	env := newTestEnv(t, "alpha", false)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")

	require.NoError(t, env.runner.Update(context.Background()))
	assert.Contains(t, env.out.String(), "Cancelled.")

	env.input = prompt.NewScripted("alpha", true)
	env.runner.Input = env.input
	env.runner.Manager = &failingManager{SkillManager: env.runner.Manager, updateErr: errors.New("locked")}

	err := env.runner.Update(context.Background())
	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, env.out.String(), "✗ Failed to update alpha: locked")
}

func TestUpdateNoPackages(t *testing.T) {
	env := newTestEnv(t)
	env.writeSkill(t, "alpha", "alpha", "First")
	assert.Equal(t, ErrNoPackages, env.runner.Update(context.Background()))
}

func TestUninstall(t *testing.T) {
	env := newTestEnv(t, "project", false, []string{"alpha"}, true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.writeSkill(t, "beta", "beta", "Second")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha", "beta")

	require.NoError(t, env.runner.Uninstall(context.Background()))

	assert.Equal(t, []string{"beta"}, skills.Names(skills.ListInstalledSkills(env.paths, config.ScopeProject)))
	out := env.out.String()
	assert.Contains(t, out, "Found 2 installed skill(s) in project scope")
	assert.Contains(t, out, "⚠ You are about to uninstall 1 skill(s):")
	assert.Contains(t, out, "✓ Uninstalled: alpha")
	assert.Contains(t, out, "Uninstallation complete: 1 succeeded, 0 failed")
}

func TestUninstallBrokenInstall(t *testing.T) {
	env := newTestEnv(t, "personal", true, true)
	broken := filepath.Join(env.paths.PersonalSkillsDir, "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "notes.txt"), []byte("x"), 0o644))

	require.NoError(t, env.runner.Uninstall(context.Background()))
	assert.NoDirExists(t, broken)
}

func TestUninstallStaleDescriptorName(t *testing.T) {
	env := newTestEnv(t, "project", true, true)
	dir := filepath.Join(env.paths.ProjectSkillsDir, "on-disk")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := "---\nname: renamed\ndescription: Renamed skill\n---\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))

	require.NoError(t, env.runner.Uninstall(context.Background()))
	assert.NoDirExists(t, dir)
	assert.Contains(t, env.out.String(), "✓ Uninstalled: renamed")
}

func TestUninstallEmptyScope(t *testing.T) {
	env := newTestEnv(t, "personal")

	require.NoError(t, env.runner.Uninstall(context.Background()))
	assert.Contains(t, env.out.String(), "⚠ No skills installed in personal scope.")
}

func TestUninstallDeclined(t *testing.T) {
	env := newTestEnv(t, "project", true, false)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")

	require.NoError(t, env.runner.Uninstall(context.Background()))
	assert.Contains(t, env.out.String(), "Cancelled.")
	assert.DirExists(t, filepath.Join(env.paths.ProjectSkillsDir, "alpha"))
}

func TestUninstallAllNotFoundFails(t *testing.T) {
	env := newTestEnv(t, "project", true, true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")

	// The skill disappears between listing and removal
	env.runner.Manager = &removingManager{SkillManager: env.runner.Manager, dir: filepath.Join(env.paths.ProjectSkillsDir, "alpha")}

	err := env.runner.Uninstall(context.Background())
	var failure *FailureError
	require.True(t, errors.As(err, &failure))
	assert.Contains(t, env.out.String(), "✗ Not found: alpha")
	assert.Contains(t, env.out.String(), "Uninstallation complete: 0 succeeded, 1 failed")
}

func TestUninstallManagerError(t *testing.T) {
	env := newTestEnv(t, "project", true, true)
	env.writeSkill(t, "alpha", "alpha", "First")
	env.build(t)
	env.install(t, config.ScopeProject, "alpha")
	env.runner.Manager = &failingManager{SkillManager: env.runner.Manager, uninstallErr: errors.New("busy")}

	err := env.runner.Uninstall(context.Background())
	require.Error(t, err)
	assert.Contains(t, env.out.String(), "✗ Failed to uninstall: busy")
}

func TestUninstallDuplicateDeclaredNames(t *testing.T) {
	env := newTestEnv(t, "project", true, true)
	for _, dir := range []string{"dup", "dup-copy"} {
		path := filepath.Join(env.paths.ProjectSkillsDir, dir)
		require.NoError(t, os.MkdirAll(path, 0o755))
		content := "---\nname: dup\ndescription: Duplicate\n---\n"
		require.NoError(t, os.WriteFile(filepath.Join(path, "SKILL.md"), []byte(content), 0o644))
	}

	require.NoError(t, env.runner.Uninstall(context.Background()))

	assert.NoDirExists(t, filepath.Join(env.paths.ProjectSkillsDir, "dup"))
	assert.NoDirExists(t, filepath.Join(env.paths.ProjectSkillsDir, "dup-copy"))
	out := env.out.String()
	assert.Contains(t, out, "✓ Uninstalled: dup\n")
	assert.Contains(t, out, "✓ Uninstalled: dup (dup-copy/)")
	assert.NotContains(t, out, "Not found")
	assert.Contains(t, out, "Uninstallation complete: 2 succeeded, 0 failed")
}

func TestUninstallPicksOneOfDuplicateNames(t *testing.T) {
	env := newTestEnv(t, "project", false, []string{"dup-copy"}, true)
	for _, dir := range []string{"dup", "dup-copy"} {
		path := filepath.Join(env.paths.ProjectSkillsDir, dir)
		require.NoError(t, os.MkdirAll(path, 0o755))
		content := "---\nname: dup\ndescription: Duplicate\n---\n"
		require.NoError(t, os.WriteFile(filepath.Join(path, "SKILL.md"), []byte(content), 0o644))
	}

	require.NoError(t, env.runner.Uninstall(context.Background()))

	assert.DirExists(t, filepath.Join(env.paths.ProjectSkillsDir, "dup"))
	assert.NoDirExists(t, filepath.Join(env.paths.ProjectSkillsDir, "dup-copy"))
}
