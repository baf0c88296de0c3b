package main

import (
	"os"

	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List skill summaries",
	Long: `List the id, category and description of every indexed skill, curated skills
first. The category filter accepts a tier, a tier and group, or a glob.

Examples:
  skillcat list
  skillcat list --category curated/utilities
  skillcat list --category 'curated/*' --output json`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		format := getOutputFromFlags(cmd, outputTable, outputJSON, outputYAML)
		category, _ := cmd.Flags().GetString("category")

		catalog, _ := loadCatalog(cmd.Context())
		summaries := catalog.List(category)
		if len(summaries) == 0 && format == outputTable {
			presenter.Info("No skills found")
			return
		}
		if err := writeSummaries(os.Stdout, summaries, format); err != nil {
			presenter.Error(err, "Failed to write skills")
			os.Exit(1)
		}
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search skills by title and description",
	Long: `Search skill titles and descriptions for a keyword, ignoring case. Skill bodies
are not searched.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format := getOutputFromFlags(cmd, outputTable, outputJSON, outputYAML)

		catalog, _ := loadCatalog(cmd.Context())
		summaries := catalog.Search(args[0])
		if len(summaries) == 0 && format == outputTable {
			presenter.Info("No skills match " + args[0])
			return
		}
		if err := writeSummaries(os.Stdout, summaries, format); err != nil {
			presenter.Error(err, "Failed to write skills")
			os.Exit(1)
		}
	},
}

func init() {
	listCmd.Flags().StringP("category", "c", "", "Category filter, e.g. curated, experimental, curated/utilities")
	listCmd.Flags().StringP("output", "o", outputTable, "Output format (table, json, yaml)")
	searchCmd.Flags().StringP("output", "o", outputTable, "Output format (table, json, yaml)")
}
