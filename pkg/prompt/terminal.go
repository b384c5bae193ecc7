package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Terminal asks questions on a terminal. Text and confirmations are line
// prompts. Selections use an interactive list when stdin and stdout are
// terminals and fall back to numbered line prompts otherwise.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	tty         *os.File
	interactive bool

	// pending holds a read left running by a cancelled prompt. The next
	// prompt takes its line so that only one goroutine reads from in.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewTerminal returns a Terminal bound to the process's stdin and stdout
func NewTerminal() *Terminal {
	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
	return &Terminal{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		tty:         os.Stdin,
		interactive: interactive,
	}
}

// NewLineTerminal returns a Terminal that only uses line prompts
func NewLineTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (t *Terminal) ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(t.out, question)

	if t.pending == nil {
		pending := make(chan lineResult, 1)
		go func() {
			line, err := t.in.ReadString('\n')
			pending <- lineResult{line, err}
		}()
		t.pending = pending
	}

	var line string
	var err error
	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", ErrAborted
	case a := <-t.pending:
		t.pending = nil
		line, err = a.line, a.err
	}
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			fmt.Fprintln(t.out)
			return "", ErrAborted
		}
		return "", errors.Wrap(err, "failed to read answer")
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) question(message, hint string) string {
	q := questionStyle.Render("? " + message)
	if hint != "" {
		q += " " + hintStyle.Render(hint)
	}
	return q + " "
}

func (t *Terminal) warn(err error) {
	fmt.Fprintln(t.out, warnStyle.Render("  "+err.Error()))
}

// Text asks for a line of text, re-asking until the validator accepts it
func (t *Terminal) Text(ctx context.Context, req TextRequest) (string, error) {
	hint := ""
	if req.Default != "" {
		hint = "(" + req.Default + ")"
	}
	for {
		answer, err := t.ask(ctx, t.question(req.Message, hint))
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = req.Default
		}
		if req.Validate != nil {
			if err := req.Validate(answer); err != nil {
				t.warn(err)
				continue
			}
		}
		return answer, nil
	}
}

// Confirm asks a yes/no question; an empty answer takes the default
func (t *Terminal) Confirm(ctx context.Context, message string, def bool) (bool, error) {
	hint := "(y/N)"
	if def {
		hint = "(Y/n)"
	}
	for {
		answer, err := t.ask(ctx, t.question(message, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		t.warn(errors.New("Please answer y or n"))
	}
}

// Select asks for exactly one choice
func (t *Terminal) Select(ctx context.Context, message string, choices []Choice) (string, error) {
	if len(choices) == 0 {
		return "", errors.Errorf("no choices for %q", message)
	}
	if t.interactive {
		values, err := t.runSelector(ctx, newSelector(message, choices, false))
		if err != nil {
			return "", err
		}
		return values[0], nil
	}

	t.printChoices(message, choices)
	for {
		answer, err := t.ask(ctx, t.question("Enter a number:", fmt.Sprintf("(1-%d)", len(choices))))
		if err != nil {
			return "", err
		}
		indexes, err := parseIndexes(answer, len(choices))
		if err != nil || len(indexes) != 1 {
			t.warn(errors.Errorf("Enter a single number between 1 and %d", len(choices)))
			continue
		}
		return choices[indexes[0]].Value, nil
	}
}

// MultiSelect asks for one or more choices
func (t *Terminal) MultiSelect(ctx context.Context, message string, choices []Choice) ([]string, error) {
	if len(choices) == 0 {
		return nil, nil
	}
	if t.interactive {
		return t.runSelector(ctx, newSelector(message, choices, true))
	}

	t.printChoices(message, choices)
	for {
		answer, err := t.ask(ctx, t.question("Enter numbers separated by commas:", "(or 'all')"))
		if err != nil {
			return nil, err
		}
		var indexes []int
		if strings.EqualFold(answer, "all") {
			for i := range choices {
				indexes = append(indexes, i)
			}
		} else {
			indexes, err = parseIndexes(answer, len(choices))
		}
		if err != nil || len(indexes) == 0 {
			t.warn(errors.Errorf("Enter at least one number between 1 and %d", len(choices)))
			continue
		}

		values := make([]string, 0, len(indexes))
		for _, i := range indexes {
			values = append(values, choices[i].Value)
		}
		return values, nil
	}
}

func (t *Terminal) printChoices(message string, choices []Choice) {
	fmt.Fprintln(t.out, questionStyle.Render("? "+message))
	for i, c := range choices {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, c.Label)
	}
}

func (t *Terminal) runSelector(ctx context.Context, model selectorModel) ([]string, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(t.tty),
		tea.WithOutput(t.out),
	)
	final, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil, ErrAborted
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to run selection prompt")
	}

	result, ok := final.(selectorModel)
	if !ok || result.aborted || !result.done {
		return nil, ErrAborted
	}
	return result.values(), nil
}

// parseIndexes turns "1, 3" into zero-based indexes, dropping duplicates
func parseIndexes(answer string, n int) ([]int, error) {
	seen := map[int]bool{}
	var indexes []int
	for _, field := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == ' ' }) {
		i, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Errorf("%q is not a number", field)
		}
		if i < 1 || i > n {
			return nil, errors.Errorf("%d is out of range", i)
		}
		if !seen[i-1] {
			seen[i-1] = true
			indexes = append(indexes, i-1)
		}
	}
	return indexes, nil
}
