package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.pipeline.Stats(cmd.Context())
			if err != nil {
				return err
			}

			opts := app.termOptions()
			symbol := termfmt.GetEmoji("statistics", opts)
			fmt.Printf("%s Statistics\n", symbol)

			model := stats.EmbeddingModel
			if model == "" {
				model = "none (index empty)"
			} else {
				model = fmt.Sprintf("%s (%d dims)", model, stats.Dimension)
			}

			items := []termfmt.TreeItem{
				{Label: "Documents", Value: fmt.Sprintf("%d", stats.Documents)},
				{Label: "Chunks", Value: fmt.Sprintf("%d", stats.Chunks)},
				{Label: "Facts", Value: fmt.Sprintf("%d", stats.Facts)},
				{Label: "Sessions", Value: fmt.Sprintf("%d", stats.Sessions)},
				{Label: "Embedding model", Value: model, Last: true},
			}
			fmt.Print(termfmt.TreeViewWithOptions(items, opts))
			return nil
		},
	}
}
