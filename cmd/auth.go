package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/phyninja/zoom-recordings-backup/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to external services",
	}
	cmd.AddCommand(newAuthDriveCmd())
	return cmd
}

func newAuthDriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drive",
		Short: "Authorize Google Drive uploads",
		Long: `Print the Google consent URL, read the authorization code from standard
input and cache the resulting OAuth token at [drive] token_file. Only the
drive.file scope is requested, so the tool can see nothing but the files it
uploads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup("auth")
			if err != nil {
				return err
			}
			defer rt.close()

			conf, err := google.LoadConfig(rt.cfg.Drive.CredentialsFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Visit this URL to authorize Google Drive access:\n\n%s\n\n", google.AuthURL(conf, uuid.NewString()))
			fmt.Fprint(out, "Authorization code: ")

			code, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(code) == "" {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := google.SaveToken(ctx, conf, code, rt.cfg.Drive.TokenFile); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", rt.cfg.Drive.TokenFile)
			return nil
		},
	}
}
