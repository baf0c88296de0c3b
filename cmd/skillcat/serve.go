package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jingkaihe/skillcat/pkg/logger"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/server"
	"github.com/jingkaihe/skillcat/pkg/skills"
	"github.com/jingkaihe/skillcat/pkg/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over a JSON HTTP API",
	Long: `Start a local HTTP server exposing the catalog:

  GET  /api/skills?category=        skill summaries
  GET  /api/skills/search?q=        keyword search
  GET  /api/skills/{id}             full skill
  GET  /api/skills/{id}/attachments/{path}
  GET  /api/status                  build status and skipped skills
  POST /api/rebuild                 rebuild the index

With --watch the index is rebuilt whenever files under the root change.
The server will be available at http://localhost:8080 by default.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		config := getServeConfigFromViper()
		watch, _ := cmd.Flags().GetBool("watch")
		fromSnapshot, _ := cmd.Flags().GetBool("from-snapshot")
		runServeCommand(ctx, config, watch, fromSnapshot)
	},
}

func init() {
	defaults := server.DefaultConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the server to")
	serveCmd.Flags().Bool("watch", false, "Rebuild the index when files under the root change")
	serveCmd.Flags().Bool("from-snapshot", false, "Start from the latest saved snapshot instead of building")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func getServeConfigFromViper() *server.Config {
	return &server.Config{
		Host: viper.GetString("server.host"),
		Port: viper.GetInt("server.port"),
	}
}

func runServeCommand(ctx context.Context, config *server.Config, watch, fromSnapshot bool) {
	if err := config.Validate(); err != nil {
		presenter.Error(err, "invalid server configuration")
		os.Exit(1)
	}

	catalog := openCatalog(ctx, fromSnapshot)

	srv, err := server.New(catalog, config)
	if err != nil {
		presenter.Error(err, "failed to create server")
		os.Exit(1)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			logger.G(ctx).WithError(closeErr).Error("failed to close server")
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if watch {
		startWatcher(ctx, catalog)
	}

	logger.G(ctx).WithField("addr", config.Addr()).Info("starting catalog server")
	presenter.Success(fmt.Sprintf("Serving %d skills on http://%s", catalog.Len(), config.Addr()))
	presenter.Info("Press Ctrl+C to stop the server")

	if err := srv.Start(ctx); err != nil {
		logger.G(ctx).WithError(err).Error("server error")
		presenter.Error(err, "server failed")
		os.Exit(1)
	}

	presenter.Info("Server stopped")
}

// openCatalog builds the configured catalog, or restores it from the
// latest saved snapshot when fromSnapshot is set.
func openCatalog(ctx context.Context, fromSnapshot bool) *skills.Catalog {
	if !fromSnapshot {
		catalog, report := loadCatalog(ctx)
		if !report.OK() {
			presenter.Warning(fmt.Sprintf("%d skills were skipped, see `skillcat build` for details", len(report.Failures)))
		}
		return catalog
	}

	cfg, err := skills.ConfigFromViper(viper.GetViper())
	if err != nil {
		presenter.Error(err, "invalid catalog configuration")
		os.Exit(1)
	}
	catalog, err := skills.NewCatalog(cfg.Root, cfg.Options()...)
	if err != nil {
		presenter.Error(err, "failed to create catalog")
		os.Exit(1)
	}

	store := openStore(ctx)
	defer store.Close()

	snap, err := store.Latest(ctx)
	if err != nil {
		presenter.Error(err, "failed to load latest snapshot")
		os.Exit(1)
	}
	if err := snap.Restore(catalog); err != nil {
		presenter.Error(err, "failed to restore snapshot")
		os.Exit(1)
	}
	logger.G(ctx).WithField("build_id", snap.Report.BuildID).Info("catalog restored from snapshot")
	return catalog
}

// startWatcher rebuilds catalog in the background until ctx is done.
func startWatcher(ctx context.Context, catalog *skills.Catalog) {
	config := getWatchConfigFromViper()
	if err := config.Validate(); err != nil {
		presenter.Error(err, "invalid watch configuration")
		os.Exit(1)
	}

	w := watcher.New(catalog, config.Options()...)
	if err := w.Start(ctx); err != nil {
		presenter.Error(err, "failed to start file watcher")
		os.Exit(1)
	}
	go func() {
		<-ctx.Done()
		if err := w.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close file watcher")
		}
	}()
}
