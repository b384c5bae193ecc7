package skills

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/pkg/errors"
)

// LoadSkill reads and strictly parses the SKILL.md of a skill directory
func LoadSkill(dir string) (*Skill, error) {
	content, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	descriptor, err := ParseDescriptor(content)
	if err != nil {
		return nil, err
	}

	return &Skill{
		Name:        descriptor.Name,
		Description: descriptor.Description,
		Path:        dir,
		Descriptor:  descriptor,
	}, nil
}

// ListSourceSkills returns every valid skill under the source directory,
// sorted by name. Directories without a valid SKILL.md are skipped. It only
// fails when the source directory itself cannot be listed.
func ListSourceSkills(paths config.Paths) ([]Skill, error) {
	dirs, err := skillDirs(paths.SourceDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skills directory")
	}

	var found []Skill
	for _, dir := range dirs {
		skill, err := LoadSkill(dir)
		if err != nil {
			continue
		}
		found = append(found, *skill)
	}

	sortByName(found)
	return found, nil
}

// ListInstalledSkills returns the skills installed in a scope, sorted by
// name. A missing scope directory yields an empty list. Directories with
// broken metadata are still listed under their directory name so they can
// be targeted for removal.
func ListInstalledSkills(paths config.Paths, scope config.Scope) []Skill {
	dirs, err := skillDirs(paths.SkillsDir(scope))
	if err != nil {
		return []Skill{}
	}

	found := make([]Skill, 0, len(dirs))
	for _, dir := range dirs {
		found = append(found, loadInstalledSkill(dir))
	}

	sortByName(found)
	return found
}

func loadInstalledSkill(dir string) Skill {
	dirName := filepath.Base(dir)

	content, err := os.ReadFile(filepath.Join(dir, SkillFileName))
	if err != nil {
		return Skill{Name: dirName, Description: UnreadableDescription, Path: dir}
	}

	descriptor, err := ParseFrontmatter(content)
	if err != nil {
		return Skill{Name: dirName, Description: UnreadableDescription, Path: dir}
	}

	skill := Skill{
		Name:        descriptor.Name,
		Description: descriptor.Description,
		Path:        dir,
		Descriptor:  descriptor,
	}
	if skill.Name == "" {
		skill.Name = dirName
	}
	if skill.Description == "" {
		skill.Description = MissingDescription
	}
	return skill
}

// skillDirs lists the non-hidden subdirectories of root. Symlinks to
// directories are followed.
func skillDirs(root string) ([]string, error) {
	if root == "" {
		return nil, errors.New("directory not configured")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		entryPath := filepath.Join(root, entry.Name())
		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, entryPath)
	}
	return dirs, nil
}

func sortByName(skills []Skill) {
	sort.SliceStable(skills, func(i, j int) bool {
		return skills[i].Name < skills[j].Name
	})
}

// Names returns the names of the given skills in order
func Names(list []Skill) []string {
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	return names
}

// PackagedSkillPath returns where the package for a skill is written
func PackagedSkillPath(paths config.Paths, name string) string {
	return filepath.Join(paths.DistDir, name+PackageExtension)
}

// PackagedSkillExists reports whether a skill has been packaged
func PackagedSkillExists(paths config.Paths, name string) bool {
	info, err := os.Stat(PackagedSkillPath(paths, name))
	return err == nil && !info.IsDir()
}

// Truncate shortens s to at most maxLength characters, ending with "..."
// when it had to be cut
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
