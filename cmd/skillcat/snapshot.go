package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jingkaihe/skillcat/pkg/db"
	"github.com/jingkaihe/skillcat/pkg/presenter"
	"github.com/jingkaihe/skillcat/pkg/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, compare and export catalog builds",
	Long: `Persist catalog builds to a local SQLite database, compare a fresh build
against a saved one, and move snapshots between machines as JSON files.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Build the catalog and save the result",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		keep, _ := cmd.Flags().GetInt("keep")

		catalog, report := loadCatalog(ctx)
		snap, err := snapshot.FromCatalog(catalog)
		if err != nil {
			presenter.Error(err, "Failed to capture catalog")
			os.Exit(1)
		}

		store := openStore(ctx)
		defer store.Close()

		if err := store.Save(ctx, snap); err != nil {
			presenter.Error(err, "Failed to save snapshot")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Saved build %s with %d skills", report.BuildID, report.Skills))

		if keep > 0 {
			removed, err := store.Prune(ctx, keep)
			if err != nil {
				presenter.Error(err, "Failed to prune old snapshots")
				os.Exit(1)
			}
			if removed > 0 {
				presenter.Info(fmt.Sprintf("Pruned %d old snapshots", removed))
			}
		}
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved builds, newest first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		builds, err := store.List(ctx)
		if err != nil {
			presenter.Error(err, "Failed to list snapshots")
			os.Exit(1)
		}
		if len(builds) == 0 {
			presenter.Info("No snapshots saved")
			return
		}
		writeBuilds(os.Stdout, builds)
	},
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare a fresh build against a saved snapshot",
	Long: `Build the catalog and print a unified diff between the saved snapshot and the
fresh build. Each skill is one line (category, id, title, description) and
each attachment one line beneath it.

By default the latest saved build is compared. Use --build to pick another
saved build or --file to compare against an exported JSON snapshot.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		buildID, _ := cmd.Flags().GetString("build")
		file, _ := cmd.Flags().GetString("file")

		old, label := loadBaseline(ctx, buildID, file)

		catalog, _ := loadCatalog(ctx)
		cur, err := snapshot.FromCatalog(catalog)
		if err != nil {
			presenter.Error(err, "Failed to capture catalog")
			os.Exit(1)
		}

		diff := snapshot.Diff(label, old, "current", cur)
		if diff == "" {
			presenter.Info("No changes since " + label)
			return
		}
		fmt.Fprint(os.Stdout, diff)
	},
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a snapshot to a JSON file",
	Long: `Write a snapshot to a JSON file. Without --build the catalog is built fresh;
with --build the named saved build is exported instead.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		buildID, _ := cmd.Flags().GetString("build")

		var snap *snapshot.Snapshot
		if buildID != "" {
			snap, _ = loadBaseline(ctx, buildID, "")
		} else {
			catalog, _ := loadCatalog(ctx)
			var err error
			if snap, err = snapshot.FromCatalog(catalog); err != nil {
				presenter.Error(err, "Failed to capture catalog")
				os.Exit(1)
			}
		}

		if err := snapshot.WriteFile(args[0], snap); err != nil {
			presenter.Error(err, "Failed to export snapshot")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Exported build %s with %d skills to %s", snap.Report.BuildID, len(snap.Records), args[0]))
	},
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Save a JSON snapshot into the local database",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		snap, err := snapshot.ReadFile(args[0])
		if err != nil {
			presenter.Error(err, "Failed to read snapshot")
			os.Exit(1)
		}
		if _, err := snap.Index(); err != nil {
			presenter.Error(err, "Invalid snapshot")
			os.Exit(1)
		}

		store := openStore(ctx)
		defer store.Close()

		if err := store.Save(ctx, snap); err != nil {
			presenter.Error(err, "Failed to save snapshot")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Imported build %s with %d skills", snap.Report.BuildID, len(snap.Records)))
	},
}

func init() {
	snapshotCmd.PersistentFlags().String("db", "", "Path to the snapshot database (default ~/.skillcat/snapshots.db)")
	viper.BindPFlag("db.path", snapshotCmd.PersistentFlags().Lookup("db"))

	snapshotSaveCmd.Flags().Int("keep", 0, "Keep only the newest N snapshots (0 keeps all)")
	snapshotDiffCmd.Flags().String("build", "", "Saved build ID to compare against (default latest)")
	snapshotDiffCmd.Flags().String("file", "", "Exported JSON snapshot to compare against")
	snapshotDiffCmd.MarkFlagsMutuallyExclusive("build", "file")
	snapshotExportCmd.Flags().String("build", "", "Export a saved build instead of building fresh")

	snapshotCmd.AddCommand(withTracing(snapshotSaveCmd))
	snapshotCmd.AddCommand(withTracing(snapshotListCmd))
	snapshotCmd.AddCommand(withTracing(snapshotDiffCmd))
	snapshotCmd.AddCommand(withTracing(snapshotExportCmd))
	snapshotCmd.AddCommand(withTracing(snapshotImportCmd))
}

// getDBPath returns db.path from flags or configuration, falling back to
// the default location.
func getDBPath() (string, error) {
	if path := viper.GetString("db.path"); path != "" {
		return path, nil
	}
	return db.DefaultDBPath()
}

func openStore(ctx context.Context) *snapshot.Store {
	path, err := getDBPath()
	if err != nil {
		presenter.Error(err, "Failed to determine database path")
		os.Exit(1)
	}
	store, err := snapshot.NewStore(ctx, path)
	if err != nil {
		presenter.Error(err, "Failed to open snapshot database")
		os.Exit(1)
	}
	return store
}

// loadBaseline loads the snapshot to compare against and a label for it.
func loadBaseline(ctx context.Context, buildID, file string) (*snapshot.Snapshot, string) {
	if file != "" {
		snap, err := snapshot.ReadFile(file)
		if err != nil {
			presenter.Error(err, "Failed to read snapshot")
			os.Exit(1)
		}
		return snap, file
	}

	store := openStore(ctx)
	defer store.Close()

	var (
		snap *snapshot.Snapshot
		err  error
	)
	if buildID != "" {
		snap, err = store.Load(ctx, buildID)
	} else {
		snap, err = store.Latest(ctx)
	}
	if err != nil {
		presenter.Error(err, "Failed to load snapshot")
		os.Exit(1)
	}
	return snap, "build " + snap.Report.BuildID
}

func writeBuilds(w io.Writer, builds []snapshot.BuildInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD\tSAVED\tSKILLS\tSKIPPED\tROOT")
	fmt.Fprintln(tw, "-----\t-----\t------\t-------\t----")
	for _, b := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", b.ID, b.SavedAt.Local().Format(time.DateTime), b.Skills, b.Failures, b.Root)
	}
	tw.Flush()
}
