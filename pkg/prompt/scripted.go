package prompt

import (
	"context"

	"github.com/pkg/errors"
)

// Scripted answers prompts from a fixed list, in order. Text answers are
// strings, Confirm answers bools, Select answers the chosen value and
// MultiSelect answers a []string of values.
type Scripted struct {
	answers []any
	asked   []string
}

// NewScripted returns an Input that replays answers
func NewScripted(answers ...any) *Scripted {
	return &Scripted{answers: answers}
}

// Asked returns every prompt message seen so far, in order
func (s *Scripted) Asked() []string {
	return s.asked
}

// Remaining returns how many answers have not been consumed
func (s *Scripted) Remaining() int {
	return len(s.answers)
}

func (s *Scripted) next(message string) (any, error) {
	s.asked = append(s.asked, message)
	if len(s.answers) == 0 {
		return nil, errors.Errorf("no scripted answer for %q", message)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	if err, ok := answer.(error); ok {
		return nil, err
	}
	return answer, nil
}

func mismatch(message string, want string, got any) error {
	return errors.Errorf("scripted answer for %q must be %s, got %T", message, want, got)
}

// Text returns the next string answer. Answers rejected by the validator are
// discarded and the following answer is tried, as a user re-typing would.
func (s *Scripted) Text(ctx context.Context, req TextRequest) (string, error) {
	for {
		answer, err := s.next(req.Message)
		if err != nil {
			return "", err
		}
		text, ok := answer.(string)
		if !ok {
			return "", mismatch(req.Message, "a string", answer)
		}
		if text == "" {
			text = req.Default
		}
		if req.Validate != nil {
			if err := req.Validate(text); err != nil {
				continue
			}
		}
		return text, nil
	}
}

// Confirm returns the next bool answer
func (s *Scripted) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	answer, err := s.next(message)
	if err != nil {
		return false, err
	}
	yes, ok := answer.(bool)
	if !ok {
		return false, mismatch(message, "a bool", answer)
	}
	return yes, nil
}

// Select returns the next answer, which must be one of the choice values
func (s *Scripted) Select(ctx context.Context, message string, choices []Choice) (string, error) {
	answer, err := s.next(message)
	if err != nil {
		return "", err
	}
	value, ok := answer.(string)
	if !ok {
		return "", mismatch(message, "a string", answer)
	}
	if !hasValue(choices, value) {
		return "", errors.Errorf("scripted answer %q is not a choice for %q", value, message)
	}
	return value, nil
}

// MultiSelect returns the next answer, whose values must all be choices
func (s *Scripted) MultiSelect(ctx context.Context, message string, choices []Choice) ([]string, error) {
	answer, err := s.next(message)
	if err != nil {
		return nil, err
	}
	values, ok := answer.([]string)
	if !ok {
		return nil, mismatch(message, "a []string", answer)
	}
	for _, v := range values {
		if !hasValue(choices, v) {
			return nil, errors.Errorf("scripted answer %q is not a choice for %q", v, message)
		}
	}
	return values, nil
}

func hasValue(choices []Choice, value string) bool {
	for _, c := range choices {
		if c.Value == value {
			return true
		}
	}
	return false
}
