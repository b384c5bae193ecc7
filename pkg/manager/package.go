package manager

import (
	"archive/zip"
	"bufio"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// IgnoreFileName lists extra exclude patterns inside a skill directory
const IgnoreFileName = ".skillignore"

var defaultExcludePatterns = []string{
	"**/.git",
	"**/node_modules",
	"**/__pycache__",
	"**/.DS_Store",
	"**/*.log",
	IgnoreFileName,
	lockFileName,
}

// PackageOptions configures CreatePackage
type PackageOptions struct {
	Path   string // Skill source directory
	Output string // Directory the .skill archive is written to
	Force  bool   // Overwrite an existing archive
}

// PackageResult describes a written package
type PackageResult struct {
	PackagePath string
	Files       []string // Archive entries, relative to the skill root
}

// CreatePackage validates the skill at opts.Path and writes it as a zip
// archive named <name>.skill whose entries are rooted at <name>/.
func (m *Manager) CreatePackage(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	validation, err := m.Validate(ctx, opts.Path, ValidateOptions{})
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, errors.Errorf("skill is invalid: %s", validation.FirstError())
	}

	name := validation.Descriptor.Name
	output := opts.Output
	if output == "" {
		output = m.paths.DistDir
	}

	unlock, err := lockDir(ctx, output)
	if err != nil {
		return nil, err
	}
	defer unlock()

	packagePath := filepath.Join(output, name+skills.PackageExtension)
	if _, err := os.Stat(packagePath); err == nil && !opts.Force {
		return nil, errors.Errorf("package %s already exists (use force to overwrite)", packagePath)
	}

	patterns, err := m.packagePatterns(opts.Path)
	if err != nil {
		return nil, err
	}

	// WalkDir does not descend into a symlinked root
	root, err := filepath.EvalSymlinks(opts.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", opts.Path)
	}

	tmp, err := os.CreateTemp(output, "."+name+"-*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temporary package file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	files, err := writeArchive(tmp, root, name, patterns)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "failed to close package file")
	}
	if err != nil {
		return nil, err
	}
	if !slices.Contains(files, skills.SkillFileName) {
		return nil, errors.Errorf("package for %s has no %s", name, skills.SkillFileName)
	}

	if err := rename(ctx, tmpPath, packagePath); err != nil {
		return nil, errors.Wrapf(err, "failed to write package %s", packagePath)
	}

	logger.G(ctx).WithField("skill", name).
		WithField("package", packagePath).
		WithField("files", len(files)).
		Info("packaged skill")

	return &PackageResult{PackagePath: packagePath, Files: files}, nil
}

func (m *Manager) packagePatterns(skillDir string) ([]string, error) {
	patterns := append([]string(nil), m.excludePatterns...)

	f, err := os.Open(filepath.Join(skillDir, IgnoreFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return patterns, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", IgnoreFileName)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(strings.TrimPrefix(line, "/"), "/")
		if !doublestar.ValidatePattern(line) {
			return nil, errors.Errorf("invalid pattern %q in %s", line, IgnoreFileName)
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", IgnoreFileName)
	}
	return patterns, nil
}

func excluded(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func writeArchive(w io.Writer, skillDir, name string, patterns []string) ([]string, error) {
	zw := zip.NewWriter(w)
	var files []string

	err := filepath.WalkDir(skillDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(skillDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(rel, patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = path.Join(name, rel)

		if d.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		header.Method = zip.Deflate
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		if _, err := io.Copy(entry, src); err != nil {
			return err
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		zw.Close()
		return nil, errors.Wrap(err, "failed to write package")
	}

	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to finalise package")
	}
	return files, nil
}
