// Package presenter writes user facing CLI messages with optional color.
// Diagnostics go through pkg/logger; this package is for results and
// outcomes the user asked for.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// ColorMode selects whether output is colored.
type ColorMode int

const (
	// ColorAuto leaves the decision to fatih/color's terminal detection.
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// Presenter writes messages to an output and an error stream.
type Presenter struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// New creates a presenter writing to stdout and stderr.
func New() *Presenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a presenter with explicit writers and color mode.
// The color mode is process wide since fatih/color keeps it globally.
func NewWithOptions(out, errOut io.Writer, mode ColorMode) *Presenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &Presenter{out: out, err: errOut}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	switch os.Getenv("SKILLCAT_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error writes err to the error stream. Errors are shown in quiet mode.
func (p *Presenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.err, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.err, "[ERROR] %v\n", err)
}

func (p *Presenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.out, "✓ %s\n", message)
}

func (p *Presenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.out, "⚠ %s\n", message)
}

func (p *Presenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, message)
}

// Section writes an underlined header.
func (p *Presenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintln(p.out, title)
	c.Fprintln(p.out, strings.Repeat("-", len(title)))
}

// Detail writes an indented, dimmed line, used under a Warning or Section
// to list individual items such as skipped skills.
func (p *Presenter) Detail(format string, args ...any) {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.out, "  "+format+"\n", args...)
}

// SetQuiet suppresses everything except errors.
func (p *Presenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

var defaultPresenter = New()

// Error writes to the default presenter.
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success writes to the default presenter.
func Success(message string) { defaultPresenter.Success(message) }

// Warning writes to the default presenter.
func Warning(message string) { defaultPresenter.Warning(message) }

// Info writes to the default presenter.
func Info(message string) { defaultPresenter.Info(message) }

// SetQuiet toggles quiet mode on the default presenter.
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }
