package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/presenter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	root := t.TempDir()
	return config.Paths{
		SourceDir:         filepath.Join(root, "src", "skills"),
		DistDir:           filepath.Join(root, "dist"),
		ProjectSkillsDir:  filepath.Join(root, ".claude", "skills"),
		PersonalSkillsDir: filepath.Join(root, "home", ".claude", "skills"),
	}
}

func writeSkill(t *testing.T, dir, name, description string) {
	t.Helper()
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n# " + name + "\n\nSteps.\n"
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
}

func TestWriteSkillTable(t *testing.T) {
	paths := testPaths(t)
	writeSkill(t, filepath.Join(paths.ProjectSkillsDir, "alpha"), "alpha", "First skill")
	writeSkill(t, filepath.Join(paths.PersonalSkillsDir, "beta"), "beta", "Second skill")

	var out bytes.Buffer
	err := writeSkillTable(context.Background(), &out, manager.New(paths), config.Scopes, nil)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "SCOPE")
	assert.Contains(t, string(lines[2]), "project")
	assert.Contains(t, string(lines[2]), "alpha")
	assert.Contains(t, string(lines[3]), "personal")
	assert.Contains(t, string(lines[3]), "Second skill")
}

func TestWriteSkillTableMatch(t *testing.T) {
	paths := testPaths(t)
	writeSkill(t, filepath.Join(paths.ProjectSkillsDir, "alpha"), "alpha", "First skill")
	writeSkill(t, filepath.Join(paths.ProjectSkillsDir, "beta"), "beta", "Second skill")

	var out bytes.Buffer
	err := writeSkillTable(context.Background(), &out, manager.New(paths), config.Scopes, []string{"b*"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "beta")
	assert.NotContains(t, out.String(), "alpha")
}

func TestWriteSkillTableEmpty(t *testing.T) {
	var out bytes.Buffer
	err := writeSkillTable(context.Background(), &out, manager.New(testPaths(t)), config.Scopes, nil)
	require.NoError(t, err)
	assert.Equal(t, "No skills installed.\n", out.String())
}

func TestListConfigScopes(t *testing.T) {
	scopes, err := (&ListConfig{}).scopes()
	require.NoError(t, err)
	assert.Equal(t, config.Scopes, scopes)

	scopes, err = (&ListConfig{Scope: "personal"}).scopes()
	require.NoError(t, err)
	assert.Equal(t, []config.Scope{config.ScopePersonal}, scopes)

	_, err = (&ListConfig{Scope: "global"}).scopes()
	assert.Error(t, err)
}

func TestValidateSkillsCmd(t *testing.T) {
	paths := testPaths(t)
	good := filepath.Join(paths.SourceDir, "good")
	bad := filepath.Join(paths.SourceDir, "folder")
	writeSkill(t, good, "good", "Fine")
	writeSkill(t, bad, "declared", "Mismatched")

	var out bytes.Buffer
	p := presenter.NewWithOptions(&out, &bytes.Buffer{}, presenter.ColorNever)

	err := validateSkillsCmd(context.Background(), p, manager.New(paths), []string{good, bad})
	assert.EqualError(t, err, "1 of 2 skill(s) invalid")

	text := out.String()
	assert.Contains(t, text, "✓ fileExists")
	assert.Contains(t, text, "Valid (8/8 checks passed)")
	assert.Contains(t, text, "✗ nameMatchesDirectory:")
	assert.Contains(t, text, "Invalid (1/8 checks failed)")
}

func TestValidateSkillsCmdMissingPath(t *testing.T) {
	var out bytes.Buffer
	p := presenter.NewWithOptions(&out, &bytes.Buffer{}, presenter.ColorNever)

	err := validateSkillsCmd(context.Background(), p, manager.New(testPaths(t)), []string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestScaffoldConfigRequest(t *testing.T) {
	c := NewScaffoldConfig()
	c.Name = "pdf-tools"
	c.Description = "Extract text"
	c.AllowedTools = []string{"Read", " ", "Bash"}

	req, err := c.request()
	require.NoError(t, err)
	assert.Equal(t, "pdf-tools", req.Name)
	assert.Equal(t, []string{"Read", "Bash"}, req.AllowedTools)
	assert.Nil(t, req.Template)

	c.Template = string(manager.TemplateAgent)
	c.Model = "opus"
	req, err = c.request()
	require.NoError(t, err)
	require.NotNil(t, req.Template)
	assert.Equal(t, manager.TemplateAgent, req.Template.Kind)
	assert.Equal(t, "opus", req.Template.Model)

	c.Name = "Bad Name"
	_, err = c.request()
	assert.ErrorContains(t, err, "--name")
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	cmd.Flags().String("scope", "", "")
	cmd.Flags().Bool("all", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--scope", "personal"}))

	assert.Equal(t, logrus.Fields{"flag.scope": "personal"}, changedFlags(cmd))
}
