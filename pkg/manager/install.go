package manager

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// InstallOptions configures Install
type InstallOptions struct {
	File  string // Path to a .skill package
	Scope config.Scope
	Force bool // Replace an existing install
}

// InstallResult describes an installed skill
type InstallResult struct {
	SkillName     string
	InstalledPath string
}

// UpdateOptions configures Update
type UpdateOptions struct {
	Name  string
	File  string
	Scope config.Scope
	Force bool // Accept a package that fails validation
}

// UpdateResult reports the versions before and after an update. Either may
// be empty when the descriptor declares no version.
type UpdateResult struct {
	SkillName       string
	InstalledPath   string
	PreviousVersion string
	NewVersion      string
}

// UninstallOptions configures Uninstall
type UninstallOptions struct {
	Names []string
	Scope config.Scope
	Force bool // Remove directories even when they carry no SKILL.md
}

// UninstallResult partitions the requested names
type UninstallResult struct {
	Removed  []string
	NotFound []string
}

// Install extracts a .skill package into the scope directory
func (m *Manager) Install(ctx context.Context, opts InstallOptions) (*InstallResult, error) {
	scopeDir, err := m.scopeDir(opts.Scope)
	if err != nil {
		return nil, err
	}

	reader, err := openPackage(opts.File)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	name, err := packageRoot(&reader.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid package %s", opts.File)
	}

	unlock, err := lockDir(ctx, scopeDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	target := filepath.Join(scopeDir, name)
	if err := checkExisting(target, opts.Force); err != nil {
		return nil, err
	}

	staging, err := extractToStaging(&reader.Reader, scopeDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	if err := replaceDir(ctx, filepath.Join(staging, name), target); err != nil {
		return nil, errors.Wrapf(err, "failed to install skill %s", name)
	}

	logger.G(ctx).WithField("skill", name).
		WithField("scope", opts.Scope).
		WithField("path", target).
		Info("installed skill")

	return &InstallResult{SkillName: name, InstalledPath: target}, nil
}

// Update replaces an installed skill with the content of a package. The
// previous install is kept aside until the new one is in place and is
// restored if the swap fails.
func (m *Manager) Update(ctx context.Context, opts UpdateOptions) (*UpdateResult, error) {
	scopeDir, err := m.scopeDir(opts.Scope)
	if err != nil {
		return nil, err
	}
	if err := checkSkillName(opts.Name); err != nil {
		return nil, err
	}

	target := filepath.Join(scopeDir, opts.Name)
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return nil, errors.Errorf("skill %q is not installed in %s scope", opts.Name, opts.Scope)
	}

	reader, err := openPackage(opts.File)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	name, err := packageRoot(&reader.Reader)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid package %s", opts.File)
	}
	if name != opts.Name {
		return nil, errors.Errorf("package %s contains skill %q, expected %q", opts.File, name, opts.Name)
	}

	unlock, err := lockDir(ctx, scopeDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	result := &UpdateResult{
		SkillName:       name,
		InstalledPath:   target,
		PreviousVersion: installedVersion(target),
	}

	staging, err := extractToStaging(&reader.Reader, scopeDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(staging)

	staged := filepath.Join(staging, name)
	if !opts.Force {
		validation, err := m.Validate(ctx, staged, ValidateOptions{})
		if err != nil {
			return nil, err
		}
		if !validation.Valid {
			return nil, errors.Errorf("package failed validation: %s", validation.FirstError())
		}
	}
	result.NewVersion = installedVersion(staged)

	if err := replaceDir(ctx, staged, target); err != nil {
		return nil, errors.Wrapf(err, "failed to update skill %s", name)
	}

	logger.G(ctx).WithField("skill", name).
		WithField("scope", opts.Scope).
		WithField("previous_version", result.PreviousVersion).
		WithField("new_version", result.NewVersion).
		Info("updated skill")

	return result, nil
}

// Uninstall removes installed skills by name. Names that are not installed
// are reported in NotFound rather than failing the call.
func (m *Manager) Uninstall(ctx context.Context, opts UninstallOptions) (*UninstallResult, error) {
	scopeDir, err := m.scopeDir(opts.Scope)
	if err != nil {
		return nil, err
	}
	for _, name := range opts.Names {
		if err := checkSkillName(name); err != nil {
			return nil, err
		}
	}

	result := &UninstallResult{}
	if info, err := os.Stat(scopeDir); err != nil || !info.IsDir() {
		result.NotFound = append(result.NotFound, opts.Names...)
		return result, nil
	}

	unlock, err := lockDir(ctx, scopeDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var errs *multierror.Error
	for _, name := range opts.Names {
		dir := filepath.Join(scopeDir, name)
		if !isInstalled(dir, opts.Force) {
			result.NotFound = append(result.NotFound, name)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "failed to remove %s", name))
			continue
		}
		logger.G(ctx).WithField("skill", name).WithField("scope", opts.Scope).Info("uninstalled skill")
		result.Removed = append(result.Removed, name)
	}

	return result, errs.ErrorOrNil()
}

// replaceDir moves staged to target. An existing target is kept aside as a
// hidden backup until staged is in place and is restored if the move fails.
func replaceDir(ctx context.Context, staged, target string) error {
	if _, err := os.Lstat(target); os.IsNotExist(err) {
		return rename(ctx, staged, target)
	}

	backup := filepath.Join(filepath.Dir(target), ".skillsmith-backup-"+uuid.New().String())
	if err := rename(ctx, target, backup); err != nil {
		return errors.Wrapf(err, "failed to move aside %s", target)
	}

	if err := rename(ctx, staged, target); err != nil {
		if restoreErr := rename(ctx, backup, target); restoreErr != nil {
			return errors.Wrapf(restoreErr, "failed to restore %s (backup left at %s)", target, backup)
		}
		return err
	}

	if err := os.RemoveAll(backup); err != nil {
		logger.G(ctx).WithError(err).WithField("backup", backup).Warn("failed to remove backup of previous install")
	}
	return nil
}

func isInstalled(dir string, force bool) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if force {
		return true
	}
	_, err = os.Stat(filepath.Join(dir, skills.SkillFileName))
	return err == nil
}

func checkExisting(target string, force bool) error {
	if _, err := os.Stat(target); err == nil && !force {
		return errors.Errorf("skill already installed at %s (use force to overwrite)", target)
	}
	return nil
}

// checkSkillName rejects names that would resolve outside the scope directory
func checkSkillName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Errorf("invalid skill name %q", name)
	}
	return nil
}

func installedVersion(dir string) string {
	content, err := os.ReadFile(filepath.Join(dir, skills.SkillFileName))
	if err != nil {
		return ""
	}
	descriptor, err := skills.ParseFrontmatter(content)
	if err != nil {
		return ""
	}
	return descriptor.EffectiveVersion()
}

// openPackage opens a .skill archive. Archives with entries that would land
// outside the extraction root are rejected here when the runtime flags them
// and by packageRoot otherwise.
func openPackage(file string) (*zip.ReadCloser, error) {
	reader, err := zip.OpenReader(file)
	if errors.Is(err, zip.ErrInsecurePath) {
		reader.Close()
		return nil, errors.Errorf("invalid package %s: entries escape the install directory", file)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open package %s", file)
	}
	return reader, nil
}

// packageRoot returns the single top-level directory of a package and
// checks that it carries a SKILL.md
func packageRoot(r *zip.Reader) (string, error) {
	roots := map[string]bool{}
	hasDescriptor := false
	for _, f := range r.File {
		clean := path.Clean(strings.TrimPrefix(f.Name, "./"))
		if clean == "." {
			continue
		}
		root, rest, _ := strings.Cut(clean, "/")
		roots[root] = true
		if rest == skills.SkillFileName {
			hasDescriptor = true
		}
	}

	if roots[".."] {
		return "", errors.New("package entries escape the install directory")
	}
	if len(roots) != 1 {
		return "", errors.Errorf("expected a single top-level directory, found %d entries", len(roots))
	}
	var root string
	for r := range roots {
		root = r
	}
	if err := skills.ValidateName(root); err != nil {
		return "", errors.Wrapf(err, "invalid skill directory %q", root)
	}
	if !hasDescriptor {
		return "", errors.Errorf("%s not found in %s/", skills.SkillFileName, root)
	}
	return root, nil
}

// extractToStaging unpacks a package into a fresh hidden directory inside
// parent so the final move is a same-filesystem rename
func extractToStaging(r *zip.Reader, parent string) (string, error) {
	staging := filepath.Join(parent, ".skillsmith-staging-"+uuid.New().String())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create staging directory")
	}

	for _, f := range r.File {
		if err := extractFile(f, staging); err != nil {
			os.RemoveAll(staging)
			return "", err
		}
	}
	return staging, nil
}

func extractFile(f *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(f.Name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(f.Name) {
		return errors.Errorf("package entry %q escapes the install directory", f.Name)
	}

	mode := f.Mode()
	switch {
	case mode.IsDir():
		return errors.Wrapf(os.MkdirAll(target, 0o755), "failed to create %s", f.Name)
	case !mode.IsRegular():
		return errors.Errorf("package entry %q is not a regular file", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", f.Name)
	}

	src, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", f.Name)
	}
	defer src.Close()

	perm := mode.Perm() | 0o600
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", f.Name)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return errors.Wrapf(err, "failed to extract %s", f.Name)
	}
	return errors.Wrapf(dst.Close(), "failed to write %s", f.Name)
}
