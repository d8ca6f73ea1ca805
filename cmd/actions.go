package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/storage"
)

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Show the classified actions of the last organize run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActions(cmd.Context())
		},
	}
}

func runActions(ctx context.Context) error {
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.svc.Actions(ctx)
	if storage.IsNotFound(err) {
		return fmt.Errorf("no classified actions yet; run `inboxtriage organize` first")
	}
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, batch)
}
