// Package config resolves the filesystem layout skillsmith works against:
// the skill source directory, the package output directory and the
// per-scope installed-skill directories.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Scope is an installation target for skills
type Scope string

// Supported scopes
const (
	ScopeProject  Scope = "project"
	ScopePersonal Scope = "personal"
)

// Scopes lists every supported scope in prompt order
var Scopes = []Scope{ScopeProject, ScopePersonal}

// ParseScope converts a user supplied string into a Scope
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeProject:
		return ScopeProject, nil
	case ScopePersonal:
		return ScopePersonal, nil
	default:
		return "", errors.Errorf("invalid scope %q: expected 'project' or 'personal'", s)
	}
}

// Default directory layout
const (
	DefaultSourceDir        = "src/skills"
	DefaultDistDir          = "dist"
	DefaultProjectSkillsDir = ".claude/skills"
)

// Paths holds the directories every command operates on
type Paths struct {
	SourceDir         string `mapstructure:"source_dir"`
	DistDir           string `mapstructure:"dist_dir"`
	ProjectSkillsDir  string `mapstructure:"project_skills_dir"`
	PersonalSkillsDir string `mapstructure:"personal_skills_dir"`
}

var pathKeys = []string{"source_dir", "dist_dir", "project_skills_dir", "personal_skills_dir"}

// DefaultPersonalSkillsDir returns ~/.claude/skills
func DefaultPersonalSkillsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(homeDir, ".claude", "skills"), nil
}

// DefaultPaths returns the conventional repository layout
func DefaultPaths() (Paths, error) {
	personal, err := DefaultPersonalSkillsDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{
		SourceDir:         DefaultSourceDir,
		DistDir:           DefaultDistDir,
		ProjectSkillsDir:  DefaultProjectSkillsDir,
		PersonalSkillsDir: personal,
	}, nil
}

// SkillsDir maps a scope to the directory its skills are installed in.
// Unknown scopes map to the empty string.
func (p Paths) SkillsDir(scope Scope) string {
	switch scope {
	case ScopeProject:
		return p.ProjectSkillsDir
	case ScopePersonal:
		return p.PersonalSkillsDir
	default:
		return ""
	}
}

// Validate ensures none of the directories are empty
func (p Paths) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"source_dir", p.SourceDir},
		{"dist_dir", p.DistDir},
		{"project_skills_dir", p.ProjectSkillsDir},
		{"personal_skills_dir", p.PersonalSkillsDir},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return errors.Errorf("%s must not be empty", f.name)
		}
	}
	return nil
}

// InitViper wires environment variables, the optional config file and the
// optional .env file into viper. It is safe to call more than once.
func InitViper() {
	// .env is optional
	_ = godotenv.Load()

	viper.SetEnvPrefix("SKILLSMITH")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.skillsmith")

	_ = viper.ReadInConfig()

	viper.SetDefault("source_dir", DefaultSourceDir)
	viper.SetDefault("dist_dir", DefaultDistDir)
	viper.SetDefault("project_skills_dir", DefaultProjectSkillsDir)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "fmt")
}

// Load resolves Paths from viper, falling back to the defaults
func Load() (Paths, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return Paths{}, err
	}

	if err := applySettings(&paths, viperPathSettings()); err != nil {
		return Paths{}, err
	}

	for _, dir := range []*string{&paths.SourceDir, &paths.DistDir, &paths.ProjectSkillsDir, &paths.PersonalSkillsDir} {
		expanded, err := ExpandHome(*dir)
		if err != nil {
			return Paths{}, err
		}
		*dir = expanded
	}

	if err := paths.Validate(); err != nil {
		return Paths{}, errors.Wrap(err, "invalid path configuration")
	}

	return paths, nil
}

// viperPathSettings collects the configured directories, leaving out unset
// ones so that they keep their defaults
func viperPathSettings() map[string]any {
	settings := map[string]any{}
	for _, key := range pathKeys {
		if v := viper.GetString(key); v != "" {
			settings[key] = v
		}
	}
	return settings
}

// applySettings merges settings over paths
func applySettings(paths *Paths, settings map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           paths,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create path decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to apply path configuration")
	}
	return nil
}

// ExpandHome replaces a leading ~/ with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	if path == "~" {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[2:]), nil
}
