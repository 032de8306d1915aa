package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents into the knowledge base",
		Long: `Read one or more text files, split them into overlapping chunks, embed
each chunk, and store everything in the local index. Re-ingesting a file
replaces its previous contents.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			opts := app.termOptions()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}

				result, err := app.pipeline.Ingest(cmd.Context(), filepath.Base(path), string(data))
				if err != nil {
					return err
				}

				symbol := termfmt.GetEmoji("success", opts)
				fmt.Printf("%s Ingested %s: %d chunks in %s (id %s)\n",
					symbol, result.Filename, result.Chunks,
					result.Elapsed.Round(timeRounding), result.DocumentID)
			}
			return nil
		},
	}
}
