package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail, Google Tasks and Google Calendar",
		Long: `Run the Google OAuth consent flow and store the token.

The OAuth client is read from google.credentials_file (a Desktop app
credentials.json downloaded from the Google Cloud console). The token is
written to google.token_file and refreshed automatically afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(cmd.Context(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run the consent flow even if a valid token exists")
	return cmd
}

func runAuth(ctx context.Context, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	client, err := newAuthClient(cfg, nil, logger, true)
	if err != nil {
		return err
	}

	switch {
	case force:
		err = client.Reauthenticate(ctx)
	case client.IsValid():
		fmt.Printf("Token in %s is valid\n", client.TokenFile())
		return nil
	default:
		if err = client.Refresh(ctx); err != nil {
			logger.Debug("token refresh failed, starting consent flow", "error", err)
			err = client.Reauthenticate(ctx)
		}
	}
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Printf("Token saved to %s\n", client.TokenFile())
	return nil
}
