package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/storage"
)

func newPreferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Submit or show topic rankings",
		Long: `Submit topic rankings from a JSON file mapping each topic to a unique
rank, 1 being the most important:

  {
    "Work": 1,
    "Finance": 2,
    // ...
  }

Comments and trailing commas are allowed. Use "-" to read from stdin.`,
	}

	for _, tier := range []preferences.Tier{preferences.TierGeneral, preferences.TierSpecific} {
		cmd.AddCommand(newSubmitPreferencesCmd(tier))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the saved rankings and top preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowPreferences(cmd.Context())
		},
	})
	return cmd
}

func newSubmitPreferencesCmd(tier preferences.Tier) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   string(tier) + " --file ranking.json",
		Short: fmt.Sprintf("Save the %s topic ranking", tier),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitPreferences(cmd.Context(), tier, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with the ranking (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runSubmitPreferences(ctx context.Context, tier preferences.Tier, file string) error {
	var ranking preferences.Ranking
	if err := readJSONFile(file, &ranking); err != nil {
		return fmt.Errorf("failed to read ranking from %s: %w", file, err)
	}

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	prefs := a.svc.Preferences()
	if tier == preferences.TierSpecific {
		if err := prefs.SubmitSpecific(ctx, ranking); err != nil {
			return err
		}
		fmt.Println("Specific preferences saved successfully.")
		return nil
	}

	top, err := prefs.SubmitGeneral(ctx, ranking)
	if err != nil {
		return err
	}
	fmt.Println("General preferences saved. Top preferences:")
	for i, topic := range top {
		fmt.Printf("%2d. %s\n", i+1, topic)
	}
	return nil
}

func runShowPreferences(ctx context.Context) error {
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	prefs := a.svc.Preferences()
	out := map[string]interface{}{}

	add := func(key string, v interface{}, err error) error {
		switch {
		case storage.IsNotFound(err):
			return nil
		case err != nil:
			return err
		}
		out[key] = v
		return nil
	}

	general, err := prefs.General(ctx)
	if err := add(storage.KeyGeneralPreferences, general, err); err != nil {
		return err
	}
	top, err := prefs.TopPreferences(ctx)
	if err := add(storage.KeyTopPreferences, top, err); err != nil {
		return err
	}
	catalog, err := prefs.SpecificTopics(ctx)
	if err := add(storage.KeySpecificTopics, catalog, err); err != nil {
		return err
	}
	specific, err := prefs.Specific(ctx)
	if err := add(storage.KeySpecificPreferences, specific, err); err != nil {
		return err
	}

	return printJSON(os.Stdout, out)
}
