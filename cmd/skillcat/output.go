package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputText  = "text"
	outputJSON  = "json"
	outputYAML  = "yaml"

	descriptionWidth = 60
	defaultWrapWidth = 100
)

// loadCatalog builds the catalog configured by flags, env and config file,
// exiting on failure. Skipped skills are reported as warnings.
func loadCatalog(ctx context.Context) (*skills.Catalog, *skills.Report) {
	catalog, report, err := skills.Initialize(ctx)
	if err != nil {
		presenter.Error(err, "Failed to build skill catalog")
		os.Exit(1)
	}
	return catalog, report
}

func validateOutput(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return errors.Errorf("invalid output format %q, must be one of: %s", format, strings.Join(allowed, ", "))
}

func getOutputFromFlags(cmd *cobra.Command, allowed ...string) string {
	format, _ := cmd.Flags().GetString("output")
	if err := validateOutput(format, allowed...); err != nil {
		presenter.Error(err, "Invalid flags")
		os.Exit(1)
	}
	return format
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "failed to encode JSON")
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode YAML")
	}
	return enc.Close()
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// writeSummaries prints summaries in the requested format.
func writeSummaries(w io.Writer, summaries []skills.Summary, format string) error {
	switch format {
	case outputJSON:
		return writeJSON(w, summaries)
	case outputYAML:
		return writeYAML(w, summaries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tDESCRIPTION")
	fmt.Fprintln(tw, "--\t--------\t-----------")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Category, truncate(s.Description, descriptionWidth))
	}
	return tw.Flush()
}

// writeRecord prints a full skill. The text format shows a header, the
// attachment list and the body, optionally rendered as terminal markdown.
func writeRecord(w io.Writer, record *skills.Record, format string, render bool) error {
	switch format {
	case outputJSON:
		return writeJSON(w, record)
	case outputYAML:
		return writeYAML(w, record)
	}

	fmt.Fprintf(w, "%s (%s)\n", record.Title, record.ID)
	fmt.Fprintf(w, "Category: %s\n", record.Category)
	fmt.Fprintf(w, "Description: %s\n", record.Description)
	if record.License != "" {
		fmt.Fprintf(w, "License: %s\n", record.License)
	}
	if len(record.AllowedTools) > 0 {
		fmt.Fprintf(w, "Allowed tools: %s\n", strings.Join(record.AllowedTools, ", "))
	}
	if len(record.Attachments) > 0 {
		fmt.Fprintln(w, "Attachments:")
		for _, a := range record.Attachments {
			fmt.Fprintf(w, "  - %s\n", a)
		}
	}
	fmt.Fprintln(w)

	body := record.Body
	if render {
		rendered, err := renderMarkdown(body, wrapWidth())
		if err != nil {
			return err
		}
		body = rendered
	}
	_, err := io.WriteString(w, body)
	return err
}

func renderMarkdown(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to create markdown renderer")
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return out, nil
}

// wrapWidth is the terminal width less a small margin, or
// defaultWrapWidth when stdout is not a terminal.
func wrapWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWrapWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width < 20 {
		return defaultWrapWidth
	}
	return width - 4
}

// writeReport prints a success line, then one detail line per skipped skill.
func writeReport(ctx context.Context, p *presenter.Presenter, report *skills.Report) {
	p.Success(fmt.Sprintf("Indexed %d skills from %s in %s", report.Skills, report.Root, report.Duration().Round(time.Millisecond)))
	if report.OK() {
		return
	}

	p.Warning(fmt.Sprintf("%d skills were skipped", len(report.Failures)))
	for _, f := range report.Failures {
		p.Detail("%s [%s]: %s", f.Path, f.Kind, f.Reason)
		logger.G(ctx).WithField("path", f.Path).WithField("kind", f.Kind).Debug("skill skipped")
	}
}
