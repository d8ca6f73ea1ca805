package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/preferences"
)

func newTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List general topics or suggest specific ones",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "general",
		Short: "List the general topics to rank",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for i, topic := range preferences.GeneralTopics {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s\n", i+1, topic)
			}
		},
	})

	var top []string
	suggestCmd := &cobra.Command{
		Use:   "suggest",
		Short: "Ask the model for ten specific topics based on the top general preferences",
		Long: `Suggest ten specific email topics derived from the top five general
preferences and save them as the catalog the specific ranking must cover.
Without --top the preferences saved by "preferences general" are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggestTopics(cmd.Context(), top)
		},
	}
	suggestCmd.Flags().StringSliceVar(&top, "top", nil, "Top general preferences (comma separated)")
	cmd.AddCommand(suggestCmd)

	return cmd
}

func runSuggestTopics(ctx context.Context, top []string) error {
	a, err := newApp(ctx, appOptions{requireModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	topics, err := a.svc.SuggestTopics(ctx, top)
	if err != nil {
		return err
	}
	for i, topic := range topics {
		fmt.Printf("%2d. %s\n", i+1, topic)
	}
	return nil
}
