package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

func newDocsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage ingested documents",
	}
	cmd.AddCommand(newDocsListCommand())
	cmd.AddCommand(newDocsDeleteCommand())
	return cmd
}

func newDocsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.pipeline.Documents(cmd.Context())
			if err != nil {
				return err
			}

			opts := app.termOptions()
			symbol := termfmt.GetEmoji("documents", opts)
			if len(docs) == 0 {
				fmt.Printf("%s No documents ingested yet.\n", symbol)
				return nil
			}

			fmt.Printf("%s Documents\n", symbol)
			items := make([]termfmt.TreeItem, 0, len(docs))
			for i, doc := range docs {
				items = append(items, termfmt.TreeItem{
					Label: doc.Filename,
					Value: fmt.Sprintf("%d chunks, %s, id %s",
						doc.ChunkCount, doc.UploadedAt.Local().Format("2006-01-02 15:04"), doc.ID),
					Last: i == len(docs)-1,
				})
			}
			fmt.Print(termfmt.TreeViewWithOptions(items, opts))
			return nil
		},
	}
}

func newDocsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			removed, err := app.pipeline.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := app.termOptions()
			if removed {
				fmt.Printf("%s Deleted document %s\n", termfmt.GetEmoji("success", opts), args[0])
			} else {
				fmt.Printf("%s No document with id %s\n", termfmt.GetEmoji("warning", opts), args[0])
			}
			return nil
		},
	}
}
