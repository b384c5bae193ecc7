// Package presenter renders the user-facing status lines of skillsmith
// commands. Each line kind has a fixed marker and colour; quiet mode hides
// everything except failures and errors.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Presenter is the output surface the workflows write to
type Presenter interface {
	Error(err error, context string)
	Failure(message string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Item(message string)
	Check(passed bool, message string)
	Blank()
	Section(title string)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// ColorMode selects whether output is coloured
type ColorMode int

const (
	// ColorAuto colours output when the color package detects a terminal
	ColorAuto ColorMode = iota
	// ColorAlways always colours output
	ColorAlways
	// ColorNever never colours output
	ColorNever
)

// kind describes how one sort of line is rendered
type kind struct {
	marker string
	attrs  []color.Attribute
	// loud lines are printed even in quiet mode
	loud bool
}

var (
	successKind   = kind{marker: "✓ ", attrs: []color.Attribute{color.FgGreen, color.Bold}}
	failureKind   = kind{marker: "✗ ", attrs: []color.Attribute{color.FgRed}, loud: true}
	warningKind   = kind{marker: "⚠ ", attrs: []color.Attribute{color.FgYellow, color.Bold}}
	infoKind      = kind{}
	itemKind      = kind{marker: "  - "}
	checkPassKind = kind{marker: "    ✓ ", attrs: []color.Attribute{color.FgGreen}}
	checkFailKind = kind{marker: "    ✗ ", attrs: []color.Attribute{color.FgRed}, loud: true}
	headerKind    = kind{attrs: []color.Attribute{color.Bold}}
	faintKind     = kind{attrs: []color.Attribute{color.Faint}}
	errorKind     = kind{marker: "[ERROR] ", attrs: []color.Attribute{color.FgRed, color.Bold}, loud: true}
)

const separatorWidth = 50

// TerminalPresenter writes status lines to stdout and errors to stderr
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// New creates a TerminalPresenter on stdout/stderr with the colour mode
// taken from NO_COLOR and SKILLSMITH_COLOR
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with explicit writers and colour mode
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("SKILLSMITH_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

func (p *TerminalPresenter) colorFor(k kind) *color.Color {
	c := color.New(k.attrs...)
	switch p.colorMode {
	case ColorAlways:
		c.EnableColor()
	case ColorNever:
		c.DisableColor()
	}
	return c
}

func (p *TerminalPresenter) write(w io.Writer, k kind, text string) {
	if p.quiet && !k.loud {
		return
	}
	if len(k.attrs) == 0 {
		fmt.Fprintf(w, "%s%s\n", k.marker, text)
		return
	}
	p.colorFor(k).Fprintf(w, "%s%s\n", k.marker, text)
}

// Error reports a fatal error on stderr
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	if context != "" {
		p.write(p.errorOutput, errorKind, fmt.Sprintf("%s: %v", context, err))
		return
	}
	p.write(p.errorOutput, errorKind, err.Error())
}

// Failure reports a per-skill failure
func (p *TerminalPresenter) Failure(message string) {
	p.write(p.output, failureKind, message)
}

// Success reports a completed step
func (p *TerminalPresenter) Success(message string) {
	p.write(p.output, successKind, message)
}

// Warning reports something the user should look at
func (p *TerminalPresenter) Warning(message string) {
	p.write(p.output, warningKind, message)
}

// Info prints a plain line
func (p *TerminalPresenter) Info(message string) {
	p.write(p.output, infoKind, message)
}

// Item prints an indented list entry
func (p *TerminalPresenter) Item(message string) {
	p.write(p.output, itemKind, message)
}

// Check prints the outcome of one validation rule
func (p *TerminalPresenter) Check(passed bool, message string) {
	if passed {
		p.write(p.output, checkPassKind, message)
		return
	}
	p.write(p.output, checkFailKind, message)
}

// Blank prints an empty line
func (p *TerminalPresenter) Blank() {
	p.write(p.output, infoKind, "")
}

// Section prints a bold title underlined to its own width
func (p *TerminalPresenter) Section(title string) {
	p.write(p.output, headerKind, title)
	p.write(p.output, headerKind, strings.Repeat("-", len([]rune(title))))
}

// Separator prints a faint horizontal rule
func (p *TerminalPresenter) Separator() {
	p.write(p.output, faintKind, strings.Repeat("-", separatorWidth))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Default returns the process-wide presenter used by the commands
func Default() *TerminalPresenter {
	return defaultPresenter
}

// Error reports a fatal error through the default presenter
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success reports a completed step through the default presenter
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning reports a warning through the default presenter
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info prints a plain line through the default presenter
func Info(message string) {
	defaultPresenter.Info(message)
}

// SetQuiet toggles quiet mode on the default presenter
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}
