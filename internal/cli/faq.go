package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
	"github.com/yildizm/studyrag/internal/factstore"
)

func newFAQCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faq",
		Short: "Manage the FAQ fact base",
	}
	cmd.AddCommand(newFAQSeedCommand())
	cmd.AddCommand(newFAQListCommand())
	return cmd
}

func newFAQSeedCommand() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed FAQ entries",
		Long: `Load question/answer entries into the fact base and embed them for
retrieval. Without --file a built-in starter set is used. Entries whose
question already exists (ignoring case and spacing) are skipped, so seeding
is safe to repeat.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			entries := factstore.BuiltinFacts()
			if seedFile != "" {
				entries, err = factstore.LoadSeedFile(seedFile)
				if err != nil {
					return err
				}
			}

			added, err := app.pipeline.SeedFacts(cmd.Context(), entries)
			if err != nil {
				return err
			}

			opts := app.termOptions()
			symbol := termfmt.GetEmoji("success", opts)
			fmt.Printf("%s Seeded %d new facts (%d supplied, duplicates skipped)\n",
				symbol, added, len(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file with fact entries")
	return cmd
}

func newFAQListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored FAQ entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.facts.All(cmd.Context())
			if err != nil {
				return err
			}

			opts := app.termOptions()
			symbol := termfmt.GetEmoji("help", opts)
			if len(entries) == 0 {
				fmt.Printf("%s No facts stored. Run 'studyrag faq seed' to load the starter set.\n", symbol)
				return nil
			}

			fmt.Printf("%s FAQ entries\n", symbol)
			items := make([]termfmt.TreeItem, 0, len(entries))
			for i, e := range entries {
				label := e.Question
				if e.Category != "" {
					label = fmt.Sprintf("[%s] %s", e.Category, e.Question)
				}
				items = append(items, termfmt.TreeItem{
					Label: label,
					Value: e.Answer,
					Last:  i == len(entries)-1,
				})
			}
			fmt.Print(termfmt.TreeViewWithOptions(items, opts))
			return nil
		},
	}
}
