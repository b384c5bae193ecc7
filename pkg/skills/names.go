package skills

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Limits on skill metadata
const (
	MaxNameLength        = 64
	MaxDescriptionLength = 1024
)

var (
	namePattern      = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$`)
	singleLetterName = regexp.MustCompile(`^[a-z]$`)
	errNameRequired  = errors.New("Name is required")
	errNameFormat    = errors.New("Name must be hyphen-case (lowercase letters, numbers, hyphens)")
	errNameTooLong   = errors.Errorf("Name must be %d characters or less", MaxNameLength)
	errDescRequired  = errors.New("Description is required")
	errDescBrackets  = errors.New("Description cannot contain angle brackets")
	errDescTooLong   = errors.Errorf("Description must be %d characters or less", MaxDescriptionLength)
)

// ValidateName checks that name is a hyphen-case identifier: lowercase
// letters, digits and hyphens, starting with a letter, not ending with a
// hyphen, at most MaxNameLength characters.
func ValidateName(name string) error {
	if name == "" {
		return errNameRequired
	}
	if !namePattern.MatchString(name) && !singleLetterName.MatchString(name) {
		return errNameFormat
	}
	if len(name) > MaxNameLength {
		return errNameTooLong
	}
	return nil
}

// ValidateDescription checks that description is non-empty, free of angle
// brackets and at most MaxDescriptionLength characters.
func ValidateDescription(description string) error {
	if description == "" {
		return errDescRequired
	}
	if strings.ContainsAny(description, "<>") {
		return errDescBrackets
	}
	if len([]rune(description)) > MaxDescriptionLength {
		return errDescTooLong
	}
	return nil
}
