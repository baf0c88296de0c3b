package main

import (
	"os"

	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the full content of a skill",
	Long: `Show a skill's metadata, attachment list and instructions. Use --render to
format the instructions as terminal markdown.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format := getOutputFromFlags(cmd, outputText, outputJSON, outputYAML)
		render, _ := cmd.Flags().GetBool("render")

		catalog, _ := loadCatalog(cmd.Context())
		record, err := catalog.Get(args[0])
		if err != nil {
			presenter.Error(err, "Failed to get skill")
			os.Exit(1)
		}
		if err := writeRecord(os.Stdout, record, format, render); err != nil {
			presenter.Error(err, "Failed to write skill")
			os.Exit(1)
		}
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <id> <relative-path>",
	Short: "Print a file belonging to a skill",
	Long: `Write the raw bytes of a file inside a skill directory to stdout. Paths are
relative to the skill directory and may not leave it.

Examples:
  skillcat fetch skill-creator scripts/init_skill.py
  skillcat fetch skill-creator references/workflows.md > workflows.md`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		catalog, _ := loadCatalog(cmd.Context())
		content, err := catalog.Fetch(cmd.Context(), args[0], args[1])
		if err != nil {
			presenter.Error(err, "Failed to fetch attachment")
			os.Exit(1)
		}
		if _, err := os.Stdout.Write(content); err != nil {
			presenter.Error(err, "Failed to write attachment")
			os.Exit(1)
		}
	},
}

func init() {
	getCmd.Flags().StringP("output", "o", outputText, "Output format (text, json, yaml)")
	getCmd.Flags().Bool("render", false, "Render the instructions as terminal markdown")
}
