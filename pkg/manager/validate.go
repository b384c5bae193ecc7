package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/skillsmith/pkg/logger"
	"github.com/jingkaihe/skillsmith/pkg/skills"
	"github.com/pkg/errors"
)

// Validation rule names, in evaluation order
const (
	CheckFileExists           = "fileExists"
	CheckFrontmatterValid     = "frontmatterValid"
	CheckRequiredFields       = "requiredFields"
	CheckAllowedProperties    = "allowedProperties"
	CheckNameFormat           = "nameFormat"
	CheckDescriptionFormat    = "descriptionFormat"
	CheckCompatibilityFormat  = "compatibilityFormat"
	CheckNameMatchesDirectory = "nameMatchesDirectory"
)

const (
	maxCompatibilityLength = 500
	maxBodyLines           = 500
)

// ValidateOptions controls how much work Validate does
type ValidateOptions struct {
	// Detailed evaluates every rule and collects warnings. Otherwise
	// validation stops at the first failing rule.
	Detailed bool
}

// CheckResult is the outcome of a single validation rule
type CheckResult struct {
	Passed bool
	Error  string
}

// ValidationResult is the outcome of validating a skill directory
type ValidationResult struct {
	Valid      bool
	Checks     map[string]CheckResult
	Order      []string
	Warnings   []string
	Descriptor *skills.Descriptor
}

// Total returns the number of rules evaluated
func (r *ValidationResult) Total() int {
	return len(r.Order)
}

// Passed returns the number of rules that passed
func (r *ValidationResult) Passed() int {
	n := 0
	for _, name := range r.Order {
		if r.Checks[name].Passed {
			n++
		}
	}
	return n
}

// Failed returns the names of the failing rules in evaluation order
func (r *ValidationResult) Failed() []string {
	var failed []string
	for _, name := range r.Order {
		if !r.Checks[name].Passed {
			failed = append(failed, name)
		}
	}
	return failed
}

// FirstError returns "<rule>: <error>" for the first failing rule
func (r *ValidationResult) FirstError() string {
	failed := r.Failed()
	if len(failed) == 0 {
		return ""
	}
	return fmt.Sprintf("%s: %s", failed[0], r.Checks[failed[0]].Error)
}

type validation struct {
	result   *ValidationResult
	detailed bool
	stopped  bool
}

func (v *validation) record(name string, err error) {
	if v.stopped {
		return
	}
	check := CheckResult{Passed: err == nil}
	if err != nil {
		check.Error = err.Error()
		if !v.detailed {
			v.stopped = true
		}
	}
	v.result.Checks[name] = check
	v.result.Order = append(v.result.Order, name)
}

func (v *validation) skip(reason string, names ...string) {
	for _, name := range names {
		v.record(name, errors.Errorf("skipped: %s", reason))
	}
}

// Validate checks a skill directory against the packaging rules. The
// returned error is reserved for paths that are not a directory at all;
// rule failures are reported in the result.
func (m *Manager) Validate(ctx context.Context, path string, opts ValidateOptions) (*ValidationResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot access skill directory %s", path)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve skill path")
	}

	v := &validation{
		result:   &ValidationResult{Checks: map[string]CheckResult{}},
		detailed: opts.Detailed,
	}
	dependent := []string{
		CheckRequiredFields,
		CheckAllowedProperties,
		CheckNameFormat,
		CheckDescriptionFormat,
		CheckCompatibilityFormat,
		CheckNameMatchesDirectory,
	}

	content, err := os.ReadFile(filepath.Join(absPath, skills.SkillFileName))
	if err != nil {
		v.record(CheckFileExists, errors.Errorf("%s not found in %s", skills.SkillFileName, path))
		v.skip(skills.SkillFileName+" could not be read", append([]string{CheckFrontmatterValid}, dependent...)...)
		return m.finish(ctx, path, v), nil
	}
	v.record(CheckFileExists, nil)

	descriptor, err := skills.ParseFrontmatter(content)
	if err != nil {
		v.record(CheckFrontmatterValid, err)
		v.skip("frontmatter could not be parsed", dependent...)
		return m.finish(ctx, path, v), nil
	}
	v.record(CheckFrontmatterValid, nil)
	v.result.Descriptor = descriptor

	v.record(CheckRequiredFields, checkRequiredFields(descriptor))
	v.record(CheckAllowedProperties, checkAllowedProperties(descriptor))
	v.record(CheckNameFormat, skills.ValidateName(descriptor.Name))
	v.record(CheckDescriptionFormat, skills.ValidateDescription(descriptor.Description))
	v.record(CheckCompatibilityFormat, checkCompatibility(descriptor))
	v.record(CheckNameMatchesDirectory, checkNameMatchesDirectory(descriptor, absPath))

	if opts.Detailed {
		v.result.Warnings = bodyWarnings(descriptor)
	}

	return m.finish(ctx, path, v), nil
}

func (m *Manager) finish(ctx context.Context, path string, v *validation) *ValidationResult {
	v.result.Valid = len(v.result.Failed()) == 0
	logger.G(ctx).WithField("path", path).
		WithField("passed", v.result.Passed()).
		WithField("total", v.result.Total()).
		Debug("validated skill")
	return v.result
}

func checkRequiredFields(d *skills.Descriptor) error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkAllowedProperties(d *skills.Descriptor) error {
	known := make(map[string]bool, len(skills.KnownKeys))
	for _, k := range skills.KnownKeys {
		known[k] = true
	}

	var unknown []string
	for _, k := range d.Keys {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Errorf("unknown frontmatter properties: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func checkCompatibility(d *skills.Descriptor) error {
	if len([]rune(d.Compatibility)) > maxCompatibilityLength {
		return errors.Errorf("compatibility must be %d characters or less", maxCompatibilityLength)
	}
	return nil
}

func checkNameMatchesDirectory(d *skills.Descriptor, dir string) error {
	dirName := filepath.Base(dir)
	if d.Name != dirName {
		return errors.Errorf("name %q does not match directory name %q", d.Name, dirName)
	}
	return nil
}

func bodyWarnings(d *skills.Descriptor) []string {
	var warnings []string
	body := strings.TrimSpace(d.Body)
	if body == "" {
		return append(warnings, "SKILL.md body is empty")
	}
	if d.Title == "" {
		warnings = append(warnings, "SKILL.md body has no top-level heading")
	}
	if lines := strings.Count(body, "\n") + 1; lines > maxBodyLines {
		warnings = append(warnings, fmt.Sprintf("SKILL.md body has %d lines; consider moving detail into references/", lines))
	}
	return warnings
}
