// Package workflow implements the interactive skill workflows behind the
// skillsmith subcommands: building every source skill, scaffolding a new
// one and installing, updating or uninstalling packaged skills.
package workflow

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillsmith/pkg/config"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/presenter"
	"github.com/jingkaihe/skillsmith/pkg/prompt"
	"github.com/pkg/errors"
)

// Fatal setup errors
var (
	ErrNoSkills   = errors.New("no skills found in the source directory")
	ErrNoPackages = errors.New(`no packaged skills available, run "skillsmith build" first`)
)

// SkillManager is the lifecycle engine the workflows drive
type SkillManager interface {
	Validate(ctx context.Context, path string, opts manager.ValidateOptions) (*manager.ValidationResult, error)
	CreatePackage(ctx context.Context, opts manager.PackageOptions) (*manager.PackageResult, error)
	Scaffold(ctx context.Context, opts manager.ScaffoldOptions) (*manager.ScaffoldResult, error)
	Install(ctx context.Context, opts manager.InstallOptions) (*manager.InstallResult, error)
	Update(ctx context.Context, opts manager.UpdateOptions) (*manager.UpdateResult, error)
	DescriptorDiff(ctx context.Context, opts manager.UpdateOptions) (string, error)
	Uninstall(ctx context.Context, opts manager.UninstallOptions) (*manager.UninstallResult, error)
}

// Runner wires the workflows to their collaborators
type Runner struct {
	Paths     config.Paths
	Manager   SkillManager
	Input     prompt.Input
	Presenter presenter.Presenter
}

// NewRunner creates a Runner
func NewRunner(paths config.Paths, mgr SkillManager, in prompt.Input, p presenter.Presenter) *Runner {
	return &Runner{
		Paths:     paths,
		Manager:   mgr,
		Input:     in,
		Presenter: p,
	}
}

// FailureError reports that some items of a run failed after every item was
// attempted. The per-item details have already been shown to the user.
type FailureError struct {
	Op     string
	Failed int
	Total  int
	Errs   *multierror.Error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s failed for %d of %d skill(s)", e.Op, e.Failed, e.Total)
}

// Unwrap exposes the per-item errors
func (e *FailureError) Unwrap() error {
	return e.Errs.ErrorOrNil()
}

func (r *Runner) listItems(names []string) {
	for _, name := range names {
		r.Presenter.Item(name)
	}
}
