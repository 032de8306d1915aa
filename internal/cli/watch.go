package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

// watchDebounce coalesces the burst of write events editors emit on save.
const watchDebounce = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and ingest changed documents",
		Long: `Watch a directory for new or modified .txt and .md files and ingest them
automatically. A re-saved file replaces its earlier version in the index.
Stops on Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("watch %s: not a directory", dir)
			}

			app, err := setupApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("watch %s: %w", dir, err)
			}

			opts := app.termOptions()
			fmt.Printf("%s Watching %s for .txt and .md files (Ctrl-C to stop)\n",
				termfmt.GetEmoji("search", opts), dir)

			return runWatchLoop(cmd.Context(), app, watcher, opts)
		},
	}
}

func runWatchLoop(ctx context.Context, app *app, watcher *fsnotify.Watcher, opts *termfmt.TerminalOptions) error {
	// pending holds paths seen recently; the timer fires once the burst
	// of events for a save has settled
	pending := map[string]struct{}{}
	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !ingestableFile(event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			app.log.Warn("watch error: %v", err)

		case <-timer.C:
			for path := range pending {
				delete(pending, path)
				ingestWatchedFile(ctx, app, path, opts)
			}
		}
	}
}

func ingestableFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func ingestWatchedFile(ctx context.Context, app *app, path string, opts *termfmt.TerminalOptions) {
	data, err := os.ReadFile(path)
	if err != nil {
		app.log.Warn("read %s: %v", path, err)
		return
	}

	filename := filepath.Base(path)
	// filename doubles as the document id so a re-save replaces the
	// earlier version
	result, err := app.pipeline.IngestAs(ctx, filename, filename, string(data))
	if err != nil {
		app.log.Error("ingest %s: %v", filename, err)
		return
	}
	fmt.Printf("%s Ingested %s: %d chunks\n",
		termfmt.GetEmoji("success", opts), result.Filename, result.Chunks)
}
