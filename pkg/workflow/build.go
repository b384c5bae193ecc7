package workflow

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/manager"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// BuildResult is the outcome of building one skill
type BuildResult struct {
	Name        string
	Validated   bool
	Packaged    bool
	PackagePath string
	Error       string
}

// Succeeded reports whether the skill was both validated and packaged
func (r BuildResult) Succeeded() bool {
	return r.Validated && r.Packaged
}

// BuildReport collects the results of a build run in discovery order
type BuildReport struct {
	Results []BuildResult
}

// Successful returns the results that validated and packaged
func (r *BuildReport) Successful() []BuildResult {
	var out []BuildResult
	for _, res := range r.Results {
		if res.Succeeded() {
			out = append(out, res)
		}
	}
	return out
}

// Failed returns the results that failed either step
func (r *BuildReport) Failed() []BuildResult {
	var out []BuildResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			out = append(out, res)
		}
	}
	return out
}

// Build validates and packages every source skill. A failing skill does not
// stop the run; the returned error is a *FailureError when any skill failed.
func (r *Runner) Build(ctx context.Context) (*BuildReport, error) {
	p := r.Presenter
	p.Info(fmt.Sprintf("Building all skills from %s/", r.Paths.SourceDir))

	if err := os.MkdirAll(r.Paths.DistDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", r.Paths.DistDir)
	}

	list, err := skills.ListSourceSkills(r.Paths)
	if err != nil {
		return nil, err
	}

	report := &BuildReport{}
	if len(list) == 0 {
		p.Warning(fmt.Sprintf("No skills found in %s/", r.Paths.SourceDir))
		return report, nil
	}

	p.Info(fmt.Sprintf("Found %d skill(s)", len(list)))
	p.Blank()

	for _, skill := range list {
		p.Info("Building: " + skill.Name)
		report.Results = append(report.Results, r.buildSkill(ctx, skill))
	}

	failed := report.Failed()

	p.Blank()
	p.Separator()
	p.Info("Build Summary:")
	p.Info(fmt.Sprintf("Total: %d", len(report.Results)))
	p.Success(fmt.Sprintf("Successful: %d", len(report.Successful())))

	if len(failed) == 0 {
		return report, nil
	}

	p.Failure(fmt.Sprintf("Failed: %d", len(failed)))
	p.Blank()

	var errs *multierror.Error
	for _, f := range failed {
		p.Failure(fmt.Sprintf("  %s: %s", f.Name, f.Error))
		errs = multierror.Append(errs, errors.Errorf("%s: %s", f.Name, f.Error))
	}

	return report, &FailureError{Op: "build", Failed: len(failed), Total: len(report.Results), Errs: errs}
}

func (r *Runner) buildSkill(ctx context.Context, skill skills.Skill) BuildResult {
	p := r.Presenter
	log := logger.G(ctx).WithField("skill", skill.Name)
	result := BuildResult{Name: skill.Name}

	validation, err := r.Manager.Validate(ctx, skill.Path, manager.ValidateOptions{Detailed: true})
	if err != nil {
		log.WithError(err).Debug("validation errored")
		result.Error = "Validation failed: " + err.Error()
		p.Failure("  Validation failed")
		return result
	}

	if !validation.Valid {
		failed := validation.Failed()
		result.Error = fmt.Sprintf("Validation failed: %d/%d checks failed", len(failed), validation.Total())
		p.Failure(fmt.Sprintf("  Validation failed (%d/%d checks failed)", len(failed), validation.Total()))
		for _, rule := range failed {
			p.Check(false, fmt.Sprintf("%s: %s", rule, validation.Checks[rule].Error))
		}
		return result
	}

	result.Validated = true
	p.Success(fmt.Sprintf("  Validated (%d/%d checks passed)", validation.Passed(), validation.Total()))
	for _, warning := range validation.Warnings {
		p.Warning("  " + warning)
	}

	pkg, err := r.Manager.CreatePackage(ctx, manager.PackageOptions{
		Path:   skill.Path,
		Output: r.Paths.DistDir,
		Force:  true,
	})
	if err != nil {
		log.WithError(err).Debug("packaging failed")
		result.Error = "Packaging failed: " + err.Error()
		p.Failure("  Packaging failed")
		return result
	}

	result.Packaged = true
	result.PackagePath = pkg.PackagePath
	p.Success("  Packaged to " + pkg.PackagePath)
	return result
}
