package manager

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip writes a raw archive with the given entries; names ending in "/"
// become directories
func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.skill")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if !strings.HasSuffix(name, "/") {
			_, err = w.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func hiddenEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var hidden []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") && e.Name() != lockFileName {
			hidden = append(hidden, e.Name())
		}
	}
	return hidden
}

func TestInstallRoundTrip(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	dir := writeSourceSkill(t, paths, "round-trip", skillMarkdown("round-trip", "Goes around", ""))
	writeFile(t, filepath.Join(dir, "scripts", "run.sh"), "echo hi\n")
	pkg := buildPackage(t, m, dir)

	result, err := m.Install(ctx, InstallOptions{File: pkg, Scope: config.ScopeProject})
	require.NoError(t, err)
	assert.Equal(t, "round-trip", result.SkillName)
	assert.Equal(t, filepath.Join(paths.ProjectSkillsDir, "round-trip"), result.InstalledPath)
	assert.FileExists(t, filepath.Join(result.InstalledPath, "scripts", "run.sh"))
	assert.Empty(t, hiddenEntries(t, paths.ProjectSkillsDir))

	installed := skills.ListInstalledSkills(paths, config.ScopeProject)
	require.Len(t, installed, 1)
	assert.Equal(t, "round-trip", installed[0].Name)
	assert.Equal(t, "Goes around", installed[0].Description)

	assert.Empty(t, skills.ListInstalledSkills(paths, config.ScopePersonal))
}

func TestInstallExisting(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	dir := writeSourceSkill(t, paths, "again", skillMarkdown("again", "Twice", ""))
	pkg := buildPackage(t, m, dir)

	_, err := m.Install(ctx, InstallOptions{File: pkg, Scope: config.ScopePersonal})
	require.NoError(t, err)
	writeFile(t, filepath.Join(paths.PersonalSkillsDir, "again", "local.txt"), "mine")

	_, err = m.Install(ctx, InstallOptions{File: pkg, Scope: config.ScopePersonal})
	assert.ErrorContains(t, err, "already installed")
	assert.FileExists(t, filepath.Join(paths.PersonalSkillsDir, "again", "local.txt"))

	_, err = m.Install(ctx, InstallOptions{File: pkg, Scope: config.ScopePersonal, Force: true})
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(paths.PersonalSkillsDir, "again", "local.txt"))
}

func TestReplaceDirRestoresOnFailure(t *testing.T) {
	scopeDir := t.TempDir()
	target := filepath.Join(scopeDir, "kept")
	writeFile(t, filepath.Join(target, "SKILL.md"), "old")

	err := replaceDir(context.Background(), filepath.Join(scopeDir, "missing-stage"), target)
	require.Error(t, err)

	content, readErr := os.ReadFile(filepath.Join(target, "SKILL.md"))
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(content))
	assert.Empty(t, hiddenEntries(t, scopeDir))
}

func TestReplaceDirSwapsExisting(t *testing.T) {
	scopeDir := t.TempDir()
	target := filepath.Join(scopeDir, "swapped")
	staged := filepath.Join(scopeDir, ".stage", "swapped")
	writeFile(t, filepath.Join(target, "SKILL.md"), "old")
	writeFile(t, filepath.Join(staged, "SKILL.md"), "new")

	require.NoError(t, replaceDir(context.Background(), staged, target))

	content, err := os.ReadFile(filepath.Join(target, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	require.NoError(t, os.RemoveAll(filepath.Join(scopeDir, ".stage")))
	assert.Empty(t, hiddenEntries(t, scopeDir))
}

func TestInstallRejectsBadPackages(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]string
		err     string
	}{
		{
			name:    "two roots",
			entries: map[string]string{"a/SKILL.md": "x", "b/SKILL.md": "x"},
			err:     "single top-level directory",
		},
		{
			name:    "no descriptor",
			entries: map[string]string{"a/README.md": "x"},
			err:     "SKILL.md not found",
		},
		{
			name:    "path traversal",
			entries: map[string]string{"a/SKILL.md": "x", "a/../../evil.txt": "x"},
			err:     "escape",
		},
		{
			name:    "bad root name",
			entries: map[string]string{"Bad_Name/SKILL.md": "x"},
			err:     "invalid skill directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := testPaths(t)
			pkg := writeZip(t, tt.entries)

			_, err := New(paths).Install(context.Background(), InstallOptions{File: pkg, Scope: config.ScopeProject})
			assert.ErrorContains(t, err, tt.err)
			assert.NoFileExists(t, filepath.Join(filepath.Dir(paths.ProjectSkillsDir), "evil.txt"))
		})
	}
}

func TestInstallInvalidScopeAndFile(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)

	_, err := m.Install(context.Background(), InstallOptions{File: "x.skill", Scope: "global"})
	assert.ErrorContains(t, err, "invalid scope")

	_, err = m.Install(context.Background(), InstallOptions{File: filepath.Join(t.TempDir(), "missing.skill"), Scope: config.ScopeProject})
	assert.ErrorContains(t, err, "failed to open package")
}

func TestExtractFileRejectsEscape(t *testing.T) {
	dest := t.TempDir()
	pkg := writeZip(t, map[string]string{"../escape.txt": "x"})
	r, err := zip.OpenReader(pkg)
	if err != nil {
		require.ErrorIs(t, err, zip.ErrInsecurePath)
	}
	defer r.Close()

	err = extractFile(r.File[0], dest)
	assert.ErrorContains(t, err, "escapes the install directory")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(dest), "escape.txt"))
}

func TestUpdate(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	dir := writeSourceSkill(t, paths, "versioned", skillMarkdown("versioned", "Has versions", "version: 1.0.0\n"))
	_, err := m.Install(ctx, InstallOptions{File: buildPackage(t, m, dir), Scope: config.ScopeProject})
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "SKILL.md"), skillMarkdown("versioned", "Has versions", "metadata:\n  version: 2.0.0\n"))
	writeFile(t, filepath.Join(dir, "references", "new.md"), "new")
	pkg := buildPackage(t, m, dir)

	result, err := m.Update(ctx, UpdateOptions{Name: "versioned", File: pkg, Scope: config.ScopeProject})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.PreviousVersion)
	assert.Equal(t, "2.0.0", result.NewVersion)
	assert.FileExists(t, filepath.Join(paths.ProjectSkillsDir, "versioned", "references", "new.md"))
	assert.Empty(t, hiddenEntries(t, paths.ProjectSkillsDir))
}

func TestUpdateRequiresExistingInstall(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	dir := writeSourceSkill(t, paths, "fresh", skillMarkdown("fresh", "New", ""))
	pkg := buildPackage(t, m, dir)

	_, err := m.Update(context.Background(), UpdateOptions{Name: "fresh", File: pkg, Scope: config.ScopeProject})
	assert.ErrorContains(t, err, "not installed in project scope")
}

func TestUpdateNameMismatch(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	one := writeSourceSkill(t, paths, "one", skillMarkdown("one", "First", ""))
	two := writeSourceSkill(t, paths, "two", skillMarkdown("two", "Second", ""))
	_, err := m.Install(ctx, InstallOptions{File: buildPackage(t, m, one), Scope: config.ScopeProject})
	require.NoError(t, err)

	_, err = m.Update(ctx, UpdateOptions{Name: "one", File: buildPackage(t, m, two), Scope: config.ScopeProject})
	assert.ErrorContains(t, err, `contains skill "two"`)
}

func TestUpdateKeepsPreviousInstallOnFailure(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	dir := writeSourceSkill(t, paths, "stable", skillMarkdown("stable", "Stays put", "version: 1.0.0\n"))
	_, err := m.Install(ctx, InstallOptions{File: buildPackage(t, m, dir), Scope: config.ScopeProject})
	require.NoError(t, err)

	broken := writeZip(t, map[string]string{
		"stable/SKILL.md": skillMarkdown("stable", "Broken", "colour: red\n"),
	})
	_, err = m.Update(ctx, UpdateOptions{Name: "stable", File: broken, Scope: config.ScopeProject})
	assert.ErrorContains(t, err, "package failed validation")

	skill, err := skills.LoadSkill(filepath.Join(paths.ProjectSkillsDir, "stable"))
	require.NoError(t, err)
	assert.Equal(t, "Stays put", skill.Description)
	assert.Empty(t, hiddenEntries(t, paths.ProjectSkillsDir))

	result, err := m.Update(ctx, UpdateOptions{Name: "stable", File: broken, Scope: config.ScopeProject, Force: true})
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", result.PreviousVersion)
	assert.Empty(t, result.NewVersion)
}

func TestUninstall(t *testing.T) {
	paths := testPaths(t)
	m := New(paths)
	ctx := context.Background()

	writeFile(t, filepath.Join(paths.ProjectSkillsDir, "alpha", "SKILL.md"), skillMarkdown("alpha", "A", ""))
	writeFile(t, filepath.Join(paths.ProjectSkillsDir, "broken", "notes.txt"), "no descriptor")

	result, err := m.Uninstall(ctx, UninstallOptions{Names: []string{"alpha", "ghost", "broken"}, Scope: config.ScopeProject})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, result.Removed)
	assert.Equal(t, []string{"ghost", "broken"}, result.NotFound)
	assert.NoDirExists(t, filepath.Join(paths.ProjectSkillsDir, "alpha"))
	assert.DirExists(t, filepath.Join(paths.ProjectSkillsDir, "broken"))

	result, err = m.Uninstall(ctx, UninstallOptions{Names: []string{"broken"}, Scope: config.ScopeProject, Force: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, result.Removed)
	assert.Empty(t, result.NotFound)
}

func TestUninstallMissingScopeDir(t *testing.T) {
	paths := testPaths(t)

	result, err := New(paths).Uninstall(context.Background(), UninstallOptions{Names: []string{"a", "b"}, Scope: config.ScopePersonal})
	require.NoError(t, err)
	assert.Empty(t, result.Removed)
	assert.Equal(t, []string{"a", "b"}, result.NotFound)
	assert.NoDirExists(t, paths.PersonalSkillsDir)
}

func TestUninstallRejectsPathNames(t *testing.T) {
	paths := testPaths(t)
	writeFile(t, filepath.Join(paths.ProjectSkillsDir, "alpha", "SKILL.md"), skillMarkdown("alpha", "A", ""))

	for _, name := range []string{"../alpha", "a/b", "..", ""} {
		_, err := New(paths).Uninstall(context.Background(), UninstallOptions{Names: []string{"alpha", name}, Scope: config.ScopeProject})
		assert.ErrorContains(t, err, "invalid skill name", name)
	}
	assert.DirExists(t, filepath.Join(paths.ProjectSkillsDir, "alpha"))
}
