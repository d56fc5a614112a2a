package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/phyninja/zoom-recordings-backup/internal/drive"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/mirror"
	"github.com/phyninja/zoom-recordings-backup/internal/server"
	"github.com/phyninja/zoom-recordings-backup/internal/state"
	"github.com/phyninja/zoom-recordings-backup/internal/transfer"
)

type syncFlags struct {
	start   string
	end     string
	reset   bool
	noDrive bool
}

func newSyncCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror Zoom cloud recordings into the local folder tree",
		Long: `Walk the configured date range one calendar month at a time, download every
recording file that is not already present with the expected size, and upload
it to Google Drive when [drive] enabled is set.

Windows that completed without errors are remembered in the state database
and skipped on the next run. Use --reset to walk every window again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.start, "start", "", "First day to mirror, YYYY-MM-DD (overrides [mirror] start_date)")
	cmd.Flags().StringVar(&flags.end, "end", "", "Last day to mirror, YYYY-MM-DD (overrides [mirror] end_date)")
	cmd.Flags().BoolVar(&flags.reset, "reset", false, "Forget completed windows and walk the whole range again")
	cmd.Flags().BoolVar(&flags.noDrive, "no-drive", false, "Skip Google Drive uploads for this run")
	return cmd
}

func runSync(cmd *cobra.Command, flags syncFlags) error {
	rt, err := setup("sync")
	if err != nil {
		return err
	}
	defer rt.close()

	start, end, err := dateRange(rt, flags.start, flags.end)
	if err != nil {
		return err
	}
	if err := rt.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock, err := mirror.AcquireLock(rt.cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			rt.logger.Warn("failed to release run lock", logging.Err(err))
		}
	}()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	tel, err := startTelemetry(ctx, rt)
	if err != nil {
		return err
	}
	defer tel.shutdown(rt)

	tokens, err := newTokenManager(rt, tel.metrics())
	if err != nil {
		tel.health.SetPhase(server.PhaseFailed)
		return err
	}
	go tokens.Run(ctx)

	client, err := newZoomClient(rt, tokens, tel.metrics())
	if err != nil {
		return err
	}

	store, err := state.Open(ctx, rt.cfg.StatePath())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			rt.logger.Warn("failed to close state database", logging.Err(err))
		}
	}()
	if flags.reset {
		if err := store.ResetWindows(ctx); err != nil {
			return err
		}
		rt.logger.Info("completed windows cleared")
	}

	var (
		uploader transfer.Uploader
		folders  *drive.Client
	)
	uploadEnabled := rt.cfg.Drive.Enabled && !flags.noDrive
	if uploadEnabled {
		folders, err = newDriveClient(ctx, rt)
		if err != nil {
			tel.health.SetPhase(server.PhaseFailed)
			return err
		}
		uploader = folders
	}
	engine := newEngine(rt, tokens, uploader, tel.metrics())

	options := []mirror.SyncerOption{
		mirror.WithProgress(store),
		mirror.WithSyncLogger(rt.logger),
		mirror.WithWindowObserver(func(w mirror.Window) { tel.health.SetWindow(w.String()) }),
	}
	if uploadEnabled {
		options = append(options, mirror.WithUpload(engine, folders))
	}
	syncer := mirror.NewSyncer(client, engine, mirror.Options{
		BaseDir:           rt.cfg.Mirror.BaseDir,
		Start:             start,
		End:               end,
		DriveFolderID:     rt.cfg.Drive.UploadFolderID,
		DeleteAfterUpload: rt.cfg.Mirror.DeleteAfterUpload && uploadEnabled,
	}, options...)

	rt.logger.Info("starting sync",
		slog.String("base_dir", rt.cfg.Mirror.BaseDir),
		logging.Window(start, end),
		slog.Bool("drive", uploadEnabled))
	tel.health.SetPhase(server.PhaseSyncing)

	began := time.Now()
	summary, runErr := syncer.Run(ctx)
	printSummary(cmd.OutOrStdout(), summary, time.Since(began))

	switch {
	case runErr != nil:
		tel.health.SetPhase(server.PhaseFailed)
		if ctx.Err() != nil {
			rt.logger.Warn("sync interrupted; completed windows are kept", logging.Err(runErr))
		}
		return runErr
	case len(summary.Failures) > 0:
		tel.health.SetPhase(server.PhaseFailed)
		return fmt.Errorf("%d item(s) failed; re-run sync to retry them", len(summary.Failures))
	}
	tel.health.SetPhase(server.PhaseDone)
	rt.logger.Info("sync complete", slog.Int("meetings", summary.Meetings), slog.Int("downloaded", summary.Downloaded))
	return nil
}

// dateRange resolves the mirror range from flags, falling back to config.
func dateRange(rt *runtime, startFlag, endFlag string) (time.Time, time.Time, error) {
	start, end := rt.cfg.StartDate(), rt.cfg.EndDate()
	if startFlag != "" {
		t, err := time.ParseInLocation(time.DateOnly, startFlag, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
		}
		start = t
	}
	if endFlag != "" {
		t, err := time.ParseInLocation(time.DateOnly, endFlag, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

func printSummary(w io.Writer, s *mirror.Summary, elapsed time.Duration) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "Windows:    %d (%d already complete)\n", s.Windows, s.WindowsSkipped)
	fmt.Fprintf(w, "Meetings:   %d\n", s.Meetings)
	fmt.Fprintf(w, "Downloaded: %d (%s in %s)\n", s.Downloaded, humanize.Bytes(uint64(s.Bytes)), elapsed.Truncate(time.Second))
	fmt.Fprintf(w, "Skipped:    %d\n", s.Skipped)
	if s.Uploaded > 0 || s.Deleted > 0 {
		fmt.Fprintf(w, "Uploaded:   %d (%d local copies deleted)\n", s.Uploaded, s.Deleted)
	}
	if len(s.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Failures:   %d\n", len(s.Failures))
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  - %s\n", f.Error())
	}
}
