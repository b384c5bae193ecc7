// Package skills discovers skills on disk. A skill is a directory holding a
// SKILL.md file whose YAML frontmatter carries at least a name and a
// description, followed by a markdown body with the skill's instructions.
package skills

import "fmt"

// SkillFileName is the descriptor file every skill directory carries
const SkillFileName = "SKILL.md"

// PackageExtension is the file extension of built skill packages
const PackageExtension = ".skill"

// Placeholder descriptions for installed skills with broken metadata
const (
	UnreadableDescription = "Unable to read description"
	MissingDescription    = "No description"
)

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name        string      // Unique name from frontmatter
	Description string      // Brief description shown in listings
	Path        string      // Path to the skill directory
	Descriptor  *Descriptor // Parsed SKILL.md, nil when it could not be read
}

// Frontmatter represents the YAML header of a SKILL.md file
type Frontmatter struct {
	Name                   string         `yaml:"name"`
	Description            string         `yaml:"description"`
	License                string         `yaml:"license,omitempty"`
	Version                string         `yaml:"version,omitempty"`
	AllowedTools           []string       `yaml:"allowed-tools,omitempty"`
	Compatibility          string         `yaml:"compatibility,omitempty"`
	Context                string         `yaml:"context,omitempty"`
	Agent                  string         `yaml:"agent,omitempty"`
	Model                  string         `yaml:"model,omitempty"`
	Memory                 string         `yaml:"memory,omitempty"`
	ArgumentHint           string         `yaml:"argument-hint,omitempty"`
	UserInvocable          *bool          `yaml:"user-invocable,omitempty"`
	DisableModelInvocation *bool          `yaml:"disable-model-invocation,omitempty"`
	Metadata               map[string]any `yaml:"metadata,omitempty"`

	// metadataVersion keeps the literal text of metadata.version
	metadataVersion string
}

// KnownKeys lists the frontmatter keys a SKILL.md may carry
var KnownKeys = []string{
	"name",
	"description",
	"license",
	"version",
	"allowed-tools",
	"compatibility",
	"context",
	"agent",
	"model",
	"memory",
	"argument-hint",
	"user-invocable",
	"disable-model-invocation",
	"metadata",
}

// EffectiveVersion returns the version declared either at the top level or
// under metadata.version
func (f Frontmatter) EffectiveVersion() string {
	if f.Version != "" {
		return f.Version
	}
	if f.metadataVersion != "" {
		return f.metadataVersion
	}
	if v, ok := f.Metadata["version"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// Descriptor is a parsed SKILL.md file
type Descriptor struct {
	Frontmatter
	Keys  []string // Raw frontmatter keys in the order they were found
	Title string   // Text of the first level-one heading in the body
	Body  string   // Markdown body without the frontmatter
}
