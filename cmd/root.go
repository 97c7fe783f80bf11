package cmd

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagOllama  string
	flagModel   string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wraith",
	Short: "Incremental LLM-driven repository documentation and data-flow diagrams",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagOllama, "ollama", "", "ollama base URL (default http://localhost:11434)")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "generation model")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <root>/.wraith.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

// wraithDir is where wraith keeps its state for a repository.
func wraithDir(root string) string {
	return filepath.Join(root, ".wraith")
}

func cachePath(root string) string {
	return filepath.Join(wraithDir(root), "cache.json")
}

func historyPath(root string) string {
	return filepath.Join(wraithDir(root), "history.db")
}

func defaultDocsDir(root string) string {
	return filepath.Join(wraithDir(root), "docs")
}
