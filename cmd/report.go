package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Render the repository summary in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd, root)
		if err != nil {
			return err
		}

		docsDir := cfg.DocsDir
		if docsDir == "" {
			docsDir = defaultDocsDir(root)
		} else if !filepath.IsAbs(docsDir) {
			docsDir = filepath.Join(root, docsDir)
		}

		summaryPath := filepath.Join(docsDir, "summary.docs.md")
		data, err := os.ReadFile(summaryPath)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no summary at %s\nRun 'wraith scan %s' first", summaryPath, args[0])
			}
			return err
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("create renderer: %w", err)
		}

		out, err := r.Render(string(data))
		if err != nil {
			return fmt.Errorf("render summary: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
