// Package manager implements the skill lifecycle engine: validating skill
// sources, packaging them into .skill archives, scaffolding new skills and
// installing, updating or removing packaged skills in a scope directory.
package manager

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gobwas/glob"
	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

const lockFileName = ".skillsmith.lock"

const (
	renameAttempts = 4
	renameDelay    = 50 * time.Millisecond
)

// Manager performs skill lifecycle operations against a directory layout
type Manager struct {
	paths           config.Paths
	excludePatterns []string
}

// Option configures a Manager instance
type Option func(*Manager)

// WithExcludePatterns adds doublestar patterns excluded from every package
func WithExcludePatterns(patterns ...string) Option {
	return func(m *Manager) {
		m.excludePatterns = append(m.excludePatterns, patterns...)
	}
}

// New creates a Manager for the given layout
func New(paths config.Paths, opts ...Option) *Manager {
	m := &Manager{
		paths:           paths,
		excludePatterns: append([]string(nil), defaultExcludePatterns...),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ListOptions selects the installed skills to list
type ListOptions struct {
	Scope config.Scope
	// Match keeps only skills whose name matches one of these glob
	// patterns. Empty keeps every skill.
	Match []string
}

// List returns the skills installed in a scope
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]skills.Skill, error) {
	dir := m.paths.SkillsDir(opts.Scope)
	if dir == "" {
		return nil, errors.Errorf("invalid scope %q", opts.Scope)
	}

	globs := make([]glob.Glob, 0, len(opts.Match))
	for _, pattern := range opts.Match {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid match pattern %q", pattern)
		}
		globs = append(globs, g)
	}

	logger.G(ctx).WithField("dir", dir).Debug("listing installed skills")
	installed := skills.ListInstalledSkills(m.paths, opts.Scope)
	if len(globs) == 0 {
		return installed, nil
	}

	matched := make([]skills.Skill, 0, len(installed))
	for _, s := range installed {
		for _, g := range globs {
			if g.Match(s.Name) {
				matched = append(matched, s)
				break
			}
		}
	}
	return matched, nil
}

func (m *Manager) scopeDir(scope config.Scope) (string, error) {
	dir := m.paths.SkillsDir(scope)
	if dir == "" {
		return "", errors.Errorf("invalid scope %q", scope)
	}
	return dir, nil
}

// lockDir takes an advisory lock on dir, creating it if needed, so that
// concurrent skillsmith processes writing into the same directory serialise.
func lockDir(ctx context.Context, dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create directory %s", dir)
	}

	unlock, err := lockedfile.MutexAt(filepath.Join(dir, lockFileName)).Lock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock %s", dir)
	}

	logger.G(ctx).WithField("dir", dir).Debug("acquired directory lock")
	return unlock, nil
}

// rename moves from to to, retrying transient failures such as a scanner
// briefly holding a file open. A missing source is never retried.
func rename(ctx context.Context, from, to string) error {
	return retry.Do(
		func() error {
			return os.Rename(from, to)
		},
		retry.RetryIf(func(err error) bool {
			return !os.IsNotExist(err)
		}),
		retry.Attempts(renameAttempts),
		retry.Delay(renameDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).
				WithField("from", from).
				WithField("attempt", n+1).
				Debug("retrying rename")
		}),
	)
}
