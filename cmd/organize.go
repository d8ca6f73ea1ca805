package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/triage"
)

func newOrganizeCmd() *cobra.Command {
	var (
		fetch  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "organize",
		Short: "Classify stored email and create tasks and calendar events",
		Long: `Classify the stored emails against the saved preferences and create a
Google Task for every important action and a Calendar event for every
meeting. With --fetch (the default) unread mail is fetched first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd.Context(), fetch, asJSON)
		},
	}

	cmd.Flags().BoolVar(&fetch, "fetch", true, "Fetch unread email before classifying")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	return cmd
}

func runOrganize(ctx context.Context, fetch, asJSON bool) error {
	a, err := newApp(ctx, appOptions{requireGoogle: true, requireModel: true, interactive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if fetch {
		emails, err := a.svc.FetchEmails(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("fetched unread emails", "count", len(emails))
	}

	report, err := a.svc.Organize(ctx)
	if asJSON && report != nil {
		if perr := printJSON(os.Stdout, report); perr != nil {
			return perr
		}
	} else if report != nil {
		printReport(report)
	}
	return err
}

func printReport(r *triage.Report) {
	fmt.Printf("Run %s: %s\n", r.RunID, r.Status)
	if r.Reason != "" {
		fmt.Printf("  %s\n", r.Reason)
	}
	if r.Status == triage.StatusSkipped {
		return
	}
	fmt.Printf("  emails: %d, classified: %d, skipped: %d, filtered: %d\n", r.Emails, r.Classified, r.Skipped, r.Filtered)
	fmt.Printf("  events: %d created, %d failed\n", r.Events.Created, r.Events.Failed)
	fmt.Printf("  tasks:  %d created, %d failed", r.Tasks.Created, r.Tasks.Failed)
	if r.Synthesized > 0 {
		fmt.Printf(" (%d reply tasks added)", r.Synthesized)
	}
	fmt.Println()
}
