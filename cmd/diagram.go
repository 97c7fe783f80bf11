package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wraith/internal/cache"
	"wraith/internal/diagram"
	"wraith/internal/llm"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram <path>",
	Short: "Rebuild the data-flow diagram from cached summaries",
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

		rec := cache.Load(cachePath(root))
		if len(rec.Summaries) == 0 {
			return fmt.Errorf("no cached summaries at %s\nRun 'wraith scan %s' first", cachePath(root), args[0])
		}

		model := cfg.DiagramModel
		if model == "" {
			model = cfg.Model
		}
		gen := llm.NewClient(llm.NewOllama(cfg.OllamaURL, cfg.Model))

		fmt.Printf("Generating diagram from %d cached summaries...\n", len(rec.Summaries))
		result := diagram.Build(context.Background(), gen, rec.Summaries, model)

		docsDir := cfg.DocsDir
		if docsDir == "" {
			docsDir = defaultDocsDir(root)
		} else if !filepath.IsAbs(docsDir) {
			docsDir = filepath.Join(root, docsDir)
		}
		if err := os.MkdirAll(docsDir, 0o755); err != nil {
			return fmt.Errorf("create docs directory: %w", err)
		}

		diagramPath := filepath.Join(docsDir, "dataflow.mmd")
		if err := os.WriteFile(diagramPath, []byte(result.Diagram), 0o644); err != nil {
			return fmt.Errorf("write diagram: %w", err)
		}

		fmt.Printf("Diagram written to %s", diagramPath)
		if result.UsedFallback {
			fmt.Print("  (fallback template)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
}
