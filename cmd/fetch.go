package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch recent unread email and store it for classification",
		Long: `Fetch unread messages from the Gmail primary inbox received within
gmail.lookback (default 48h), at most gmail.max_emails, and store them
for the organize command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the fetched emails as JSON")
	return cmd
}

func runFetch(ctx context.Context, asJSON bool) error {
	a, err := newApp(ctx, appOptions{requireGoogle: true, interactive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	emails, err := a.svc.FetchEmails(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(os.Stdout, emails)
	}
	fmt.Printf("Fetched %d unread emails\n", len(emails))
	for _, e := range emails {
		fmt.Printf("  %s  %-40.40s  %s\n", e.ID, e.Subject, e.Sender)
	}
	return nil
}
