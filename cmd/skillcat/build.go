package main

import (
	"os"

	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the catalog and report skipped skills",
	Long: `Walk the catalog root, index every skill and print the build report. Skills
with a missing or malformed SKILL.md and duplicate identifiers are skipped
and listed. With --strict the command fails when any skill was skipped,
which makes it suitable as a CI check for a skills repository.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		format := getOutputFromFlags(cmd, outputText, outputJSON, outputYAML)
		strict, _ := cmd.Flags().GetBool("strict")

		_, report := loadCatalog(cmd.Context())

		var err error
		switch format {
		case outputJSON:
			err = writeJSON(os.Stdout, report)
		case outputYAML:
			err = writeYAML(os.Stdout, report)
		default:
			writeReport(cmd.Context(), presenter.New(), report)
		}
		if err != nil {
			presenter.Error(err, "Failed to write report")
			os.Exit(1)
		}

		if strict && !report.OK() {
			presenter.Error(report.Err(), "Catalog has skipped skills")
			os.Exit(1)
		}
	},
}

func init() {
	buildCmd.Flags().StringP("output", "o", outputText, "Output format (text, json, yaml)")
	buildCmd.Flags().Bool("strict", false, "Exit with an error if any skill was skipped")
}
