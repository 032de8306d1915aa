package cli

import (
	"fmt"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yildizm/studyrag/internal/logger"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	noEmoji bool
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "studyrag",
		Short: "Study Assistant with Retrieval-Augmented Answers",
		Long: `StudyRAG answers questions from your own study materials. Ingest notes and
documents, and it retrieves the most relevant passages plus matching FAQ
entries before generating an answer, always citing which files it drew from.

When nothing relevant is found it says so and falls back to general knowledge.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			logger.SetVerbose(verbose)

			// a .env next to the working directory is a convenience for
			// API keys; absence is not an error
			_ = godotenv.Load()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")

	// Add subcommands
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newDocsCommand())
	rootCmd.AddCommand(newFAQCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			fmt.Printf("StudyRAG %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
