package main

import (
	"context"
	"os"
	"strings"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Environment variables, e.g. SKILLCAT_ROOT or SKILLCAT_SERVER_PORT
	viper.SetEnvPrefix("SKILLCAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("root", ".")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("watch.debounce", "500ms")

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.skillcat")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

// tracingShutdown is set by the root command's pre-run hook.
var tracingShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "skillcat",
	Short: "Index and query a catalog of agent skills",
	Long: `skillcat indexes a directory tree of agent skills, each a folder holding a
SKILL.md document with YAML front-matter, and serves their metadata, full
instructions and attachments from the command line, over HTTP or as MCP tools.

The catalog root must contain curated/<group>/<skill> and/or
experimental/<skill> directories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := logger.Configure(logger.Options{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
		}); err != nil {
			return err
		}

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to initialize tracing")
			return nil
		}
		tracingShutdown = shutdown
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		if tracingShutdown == nil {
			return
		}
		if err := tracingShutdown(context.Background()); err != nil {
			logger.G(cmd.Context()).WithError(err).Warn("failed to shut down tracing")
		}
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().String("root", ".", "Root directory of the skill catalog")
	rootCmd.PersistentFlags().StringSlice("exclude", nil, "Attachment glob patterns to exclude (replaces the defaults)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")

	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("excludes", rootCmd.PersistentFlags().Lookup("exclude"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(withTracing(listCmd))
	rootCmd.AddCommand(withTracing(searchCmd))
	rootCmd.AddCommand(withTracing(getCmd))
	rootCmd.AddCommand(withTracing(fetchCmd))
	rootCmd.AddCommand(withTracing(buildCmd))
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(withTracing(mcpCmd))
	rootCmd.AddCommand(withTracing(watchCmd))
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
