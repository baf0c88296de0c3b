package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/jingkaihe/skillcat/pkg/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the catalog whenever skill files change",
	Long: `Continuously monitor the catalog root and rebuild the index after every burst
of changes, printing the build report each time. Useful while authoring
skills to see malformed documents as soon as they are saved.

Hidden directories are never watched.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		config := getWatchConfigFromViper()
		if err := config.Validate(); err != nil {
			presenter.Error(err, "Invalid configuration")
			os.Exit(1)
		}

		catalog, report := loadCatalog(ctx)
		p := presenter.New()
		writeReport(ctx, p, report)

		runWatchMode(ctx, catalog, config, p)
	},
}

func init() {
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "Quiet period before a burst of changes triggers a rebuild")
	watchCmd.Flags().StringSlice("ignore", watcher.DefaultIgnore, "Root-relative glob patterns whose changes are ignored")

	viper.BindPFlag("watch.debounce", watchCmd.Flags().Lookup("debounce"))
	viper.BindPFlag("watch.ignore", watchCmd.Flags().Lookup("ignore"))
}

func getWatchConfigFromViper() *watcher.Config {
	config := &watcher.Config{
		Debounce: viper.GetDuration("watch.debounce"),
	}
	if viper.IsSet("watch.ignore") {
		config.Ignore = viper.GetStringSlice("watch.ignore")
	}
	return config
}

func runWatchMode(ctx context.Context, catalog *skills.Catalog, config *watcher.Config, p *presenter.Presenter) {
	opts := append(config.Options(), watcher.OnRebuild(func(changed []string, report *skills.Report, err error) {
		p.Section(fmt.Sprintf("Rebuilding after changes to %d files", len(changed)))
		if err != nil {
			p.Error(err, "Rebuild failed, keeping the previous index")
			return
		}
		writeReport(ctx, p, report)
	}))

	w := watcher.New(catalog, opts...)
	p.Info("Watching " + catalog.Root() + " for changes... Press Ctrl+C to stop")
	if err := w.Run(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("file watcher failed")
		p.Error(err, "File watcher failed")
		os.Exit(1)
	}
}
