package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/phyninja/zoom-recordings-backup/internal/instrumentation"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/mirror"
	"github.com/phyninja/zoom-recordings-backup/internal/reconcile"
	"github.com/phyninja/zoom-recordings-backup/internal/scan"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

// errNotVerified signals findings; the report itself has been printed.
var errNotVerified = errors.New("local mirror does not match Zoom")

func newVerifyCmd() *cobra.Command {
	var start, end string
	var margin float64
	var threshold int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the local folders match Zoom's recording inventory",
		Long: `Fetch the recording inventory for the configured date range without
downloading anything, scan the local mirror, and report meetings with no local
folder and files whose size is not within the tolerated margin.

Exits with status 1 when anything is missing or mismatched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup("verify")
			if err != nil {
				return err
			}
			defer rt.close()

			from, to, err := dateRange(rt, start, end)
			if err != nil {
				return err
			}
			opts := reconcile.Options{Margin: rt.cfg.Verify.Margin, Threshold: rt.cfg.Verify.Threshold}
			if cmd.Flags().Changed("margin") {
				opts.Margin = margin
			}
			if cmd.Flags().Changed("threshold") {
				opts.Threshold = threshold
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			tel, err := startTelemetry(ctx, rt)
			if err != nil {
				return err
			}
			defer tel.shutdown(rt)

			tokens, err := newTokenManager(rt, tel.metrics())
			if err != nil {
				return err
			}
			go tokens.Run(ctx)

			client, err := newZoomClient(rt, tokens, tel.metrics())
			if err != nil {
				return err
			}

			meetings, collectErr := mirror.NewCollector(client, from, to, rt.logger).Collect(ctx)
			if collectErr != nil {
				if ctx.Err() != nil {
					return collectErr
				}
				var authErr *zoom.AuthError
				if errors.As(collectErr, &authErr) {
					rt.logger.Error("zoom authentication failed; report covers the pages fetched before it", logging.Err(collectErr))
				} else {
					rt.logger.Warn("inventory incomplete; report covers the windows that were fetched", logging.Err(collectErr))
				}
			}

			local, err := scan.Scan(rt.cfg.Mirror.BaseDir)
			if err != nil {
				return err
			}

			report := reconcile.Verify(reconcile.RemoteIndex(meetings), local, opts)
			tel.metrics().RecordReconcileFindings(ctx, instrumentation.FindingMissingFolder, len(report.MissingFolders))
			tel.metrics().RecordReconcileFindings(ctx, instrumentation.FindingMismatchedFile, len(report.MismatchedFiles))
			rt.logger.Info("verification finished",
				slog.Int("meetings", len(meetings)),
				slog.Int("local_folders", len(local)),
				slog.Int("missing_folders", len(report.MissingFolders)),
				slog.Int("mismatched_files", len(report.MismatchedFiles)))

			if err := report.Render(cmd.OutOrStdout()); err != nil {
				return err
			}
			if collectErr != nil {
				return fmt.Errorf("inventory incomplete: %w", collectErr)
			}
			if !report.Verified() {
				return errNotVerified
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First day to verify, YYYY-MM-DD (overrides [mirror] start_date)")
	cmd.Flags().StringVar(&end, "end", "", "Last day to verify, YYYY-MM-DD (overrides [mirror] end_date)")
	defaults := reconcile.DefaultOptions()
	cmd.Flags().Float64Var(&margin, "margin", defaults.Margin, "Relative size tolerance (overrides [verify] margin)")
	cmd.Flags().IntVar(&threshold, "threshold", defaults.Threshold, "Minimum folder-name similarity, 0-100 (overrides [verify] threshold)")
	return cmd
}
