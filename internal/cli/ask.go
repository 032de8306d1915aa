package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

const timeRounding = time.Millisecond

func newAskCommand() *cobra.Command {
	var sessionID string
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a question against your study materials",
		Long: `Retrieve the most relevant chunks and FAQ entries for the question, then
generate an answer with source citations. With --session the exchange is
recorded and prior turns of the same session inform follow-up questions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.pipeline.Answer(cmd.Context(), question, sessionID)
			if err != nil {
				return err
			}

			opts := app.termOptions()
			fmt.Println(result.Answer)

			if result.FromGeneralKnowledge {
				symbol := termfmt.GetEmoji("warning", opts)
				fmt.Printf("\n%s Answered from general knowledge, not your documents.\n", symbol)
				return nil
			}

			if len(result.Sources) > 0 {
				symbol := termfmt.GetEmoji("documents", opts)
				fmt.Printf("\n%s Sources\n", symbol)
				items := make([]termfmt.TreeItem, 0, len(result.Sources))
				for i, source := range result.Sources {
					items = append(items, termfmt.TreeItem{
						Label: source,
						Last:  i == len(result.Sources)-1,
					})
				}
				fmt.Print(termfmt.TreeViewWithOptions(items, opts))
			}

			if showContext {
				symbol := termfmt.GetEmoji("insights", opts)
				fmt.Printf("\n%s Retrieved context\n", symbol)
				items := make([]termfmt.TreeItem, 0, len(result.Retrieved.Items))
				for i, item := range result.Retrieved.Items {
					items = append(items, termfmt.TreeItem{
						Label: fmt.Sprintf("%s (%s)", item.Label, item.Kind),
						Value: fmt.Sprintf("score %.3f", item.Score),
						Last:  i == len(result.Retrieved.Items)-1,
					})
				}
				fmt.Print(termfmt.TreeViewWithOptions(items, opts))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id for conversational follow-ups")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context items with scores")
	return cmd
}
