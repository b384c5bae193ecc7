package manager

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// maxDescriptorSize bounds how much of a packaged SKILL.md is read
const maxDescriptorSize = 1 << 20

// DescriptorDiff returns a unified diff from the installed SKILL.md of
// opts.Name to the one inside opts.File. The result is empty when both are
// identical. Nothing on disk is changed.
func (m *Manager) DescriptorDiff(ctx context.Context, opts UpdateOptions) (string, error) {
	scopeDir, err := m.scopeDir(opts.Scope)
	if err != nil {
		return "", err
	}
	if err := checkSkillName(opts.Name); err != nil {
		return "", err
	}

	installedPath := filepath.Join(scopeDir, opts.Name, skills.SkillFileName)
	installed, err := os.ReadFile(installedPath)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "failed to read %s", installedPath)
	}

	packaged, err := packagedDescriptor(opts.File)
	if err != nil {
		return "", err
	}

	diff := udiff.Unified("installed/"+skills.SkillFileName, "package/"+skills.SkillFileName, string(installed), packaged)
	logger.G(ctx).WithField("skill", opts.Name).
		WithField("changed", diff != "").
		Debug("computed descriptor diff")
	return diff, nil
}

func packagedDescriptor(file string) (string, error) {
	reader, err := openPackage(file)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	root, err := packageRoot(&reader.Reader)
	if err != nil {
		return "", errors.Wrapf(err, "invalid package %s", file)
	}

	want := path.Join(root, skills.SkillFileName)
	for _, f := range reader.File {
		if path.Clean(f.Name) != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", errors.Wrapf(err, "failed to open %s in %s", want, file)
		}
		defer rc.Close()

		content, err := io.ReadAll(io.LimitReader(rc, maxDescriptorSize))
		if err != nil {
			return "", errors.Wrapf(err, "failed to read %s in %s", want, file)
		}
		return string(content), nil
	}
	return "", errors.Errorf("%s not found in %s", want, file)
}
