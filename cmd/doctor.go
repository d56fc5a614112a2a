package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/phyninja/zoom-recordings-backup/internal/google"
	"github.com/phyninja/zoom-recordings-backup/internal/logging"
	"github.com/phyninja/zoom-recordings-backup/internal/mirror"
	"github.com/phyninja/zoom-recordings-backup/internal/state"
	"github.com/phyninja/zoom-recordings-backup/internal/zoom"
)

type checkResult struct {
	name   string
	ok     bool
	detail string
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, Zoom credentials and Google Drive access",
		Long: `Run a series of checks against the configuration and the remote services:
the credential file is readable, the refresh token can be exchanged, the Zoom
API answers, the state database opens, and (when enabled) Google Drive is
authorized and has free space.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup("doctor")
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := commandContext(cmd)
			defer cancel()

			results := runChecks(ctx, rt)

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Check", "Status", "Detail"})
			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.ok {
					status = "FAIL"
					failed++
				}
				tw.AppendRow(table.Row{r.name, status, r.detail})
			}
			tw.Render()

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

func runChecks(ctx context.Context, rt *runtime) []checkResult {
	results := []checkResult{{name: "config", ok: true, detail: rt.configPath}}
	add := func(name string, err error, detail string) {
		if err != nil {
			detail = err.Error()
		}
		results = append(results, checkResult{name: name, ok: err == nil, detail: detail})
	}

	tokens, err := newTokenManager(rt, nil)
	add("zoom credentials", err, rt.cfg.Zoom.CredentialsFile)
	if err == nil {
		cred, err := tokens.Refresh(ctx)
		add("zoom token refresh", err, fmt.Sprintf("access token %s issued %s",
			logging.SanitizeToken(cred.AccessToken), humanize.Time(cred.IssuedAt)))
		if err == nil {
			results = append(results, zoomAPICheck(ctx, rt, tokens))
		}
	}

	if err := rt.cfg.EnsureDirectories(); err != nil {
		add("directories", err, "")
	} else {
		results = append(results, stateCheck(ctx, rt), lockCheck(rt))
	}

	if rt.cfg.Drive.Enabled {
		results = append(results, driveCheck(ctx, rt))
	}
	return results
}

func zoomAPICheck(ctx context.Context, rt *runtime, tokens *zoom.TokenManager) checkResult {
	client, err := newZoomClient(rt, tokens, nil)
	if err != nil {
		return checkResult{name: "zoom api", detail: err.Error()}
	}
	limits, err := client.RateLimits(ctx)
	if err != nil {
		return checkResult{name: "zoom api", detail: err.Error()}
	}
	detail := "reachable"
	if limits.Limit != "" {
		detail = fmt.Sprintf("rate limit %s, remaining %s", limits.Limit, limits.Remaining)
		if limits.Reset != "" {
			detail += ", resets " + limits.Reset
		}
	}
	return checkResult{name: "zoom api", ok: true, detail: detail}
}

func stateCheck(ctx context.Context, rt *runtime) checkResult {
	store, err := state.Open(ctx, rt.cfg.StatePath())
	if err != nil {
		return checkResult{name: "state database", detail: err.Error()}
	}
	defer func() { _ = store.Close() }()

	failed, err := store.Transfers(ctx, state.StatusFailed)
	if err != nil {
		return checkResult{name: "state database", detail: err.Error()}
	}
	detail := store.Path()
	if len(failed) > 0 {
		detail = fmt.Sprintf("%s (%d failed transfer(s) pending retry)", detail, len(failed))
	}
	return checkResult{name: "state database", ok: true, detail: detail}
}

func lockCheck(rt *runtime) checkResult {
	lock, err := mirror.AcquireLock(rt.cfg.LockPath())
	if err != nil {
		if errors.Is(err, mirror.ErrLocked) {
			return checkResult{name: "run lock", ok: true, detail: "a sync is running"}
		}
		return checkResult{name: "run lock", detail: err.Error()}
	}
	if err := lock.Release(); err != nil {
		return checkResult{name: "run lock", detail: err.Error()}
	}
	return checkResult{name: "run lock", ok: true, detail: "free"}
}

func driveCheck(ctx context.Context, rt *runtime) checkResult {
	if !google.HasToken(rt.cfg.Drive.TokenFile) {
		return checkResult{name: "google drive", detail: google.ErrNoToken.Error()}
	}
	client, err := newDriveClient(ctx, rt)
	if err != nil {
		return checkResult{name: "google drive", detail: err.Error()}
	}
	quota, err := client.StorageQuota(ctx)
	if err != nil {
		return checkResult{name: "google drive", detail: err.Error()}
	}
	available := quota.Available()
	if available < 0 {
		return checkResult{name: "google drive", ok: true, detail: fmt.Sprintf("%s used, unlimited", humanize.Bytes(uint64(quota.Usage)))}
	}
	return checkResult{
		name:   "google drive",
		ok:     available > 0,
		detail: fmt.Sprintf("%s free of %s", humanize.Bytes(uint64(available)), humanize.Bytes(uint64(quota.Limit))),
	}
}
