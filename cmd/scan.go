package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wraith/internal/config"
	"wraith/internal/diagram"
	"wraith/internal/language"
	"wraith/internal/llm"
	"wraith/internal/scan"
	"wraith/internal/store"
	"wraith/internal/tui"
)

var (
	flagWorkers      int
	flagMaxTokens    int
	flagDiagramModel string
	flagThreatModel  bool
	flagTUI          bool
	flagDocsDir      string
	flagEnableLangs  string
	flagDisableLangs string
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a repository and generate documentation artifacts",
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

		registry := language.NewRegistry(cfg.EnableLanguages, cfg.DisableLanguages)
		gen := llm.NewClient(llm.NewOllama(cfg.OllamaURL, cfg.Model))

		scanner := scan.New(scan.Config{
			Root:        root,
			DocsDir:     docsDir,
			CachePath:   cachePath(root),
			Workers:     cfg.Workers,
			MaxTokens:   cfg.MaxTokens,
			Model:       cfg.Model,
			ThreatModel: cfg.ThreatModel,
		}, registry, gen)

		ctx := context.Background()
		started := time.Now()

		var stats *scan.Stats
		if flagTUI {
			stats, err = tui.Run(func(onProgress scan.ProgressFunc) (*scan.Stats, error) {
				return scanner.WithProgress(onProgress).Run(ctx)
			})
		} else {
			fmt.Printf("Scanning %s...\n", root)
			stats, err = scanner.WithProgress(func(completed, total int) {
				fmt.Printf("\r  %d / %d files", completed, total)
				if completed == total {
					fmt.Println()
				}
			}).Run(ctx)
		}
		if err != nil {
			return err
		}
		if stats == nil {
			return fmt.Errorf("scan produced no results")
		}

		diagramModel := cfg.DiagramModel
		if diagramModel == "" {
			diagramModel = cfg.Model
		}
		fmt.Println("Generating data-flow diagram...")
		result := diagram.Build(ctx, gen, stats.Summaries, diagramModel)

		diagramPath := filepath.Join(docsDir, "dataflow.mmd")
		if err := os.WriteFile(diagramPath, []byte(result.Diagram), 0o644); err != nil {
			return fmt.Errorf("write diagram: %w", err)
		}

		recordRun(root, started, stats, result)

		elapsed := time.Since(started)
		fmt.Printf("\nDone in %s\n", elapsed.Round(time.Millisecond))
		fmt.Printf("  Files:   %d total, %d generated, %d reused, %d failed\n",
			stats.FilesTotal, stats.FilesChanged, stats.FilesReused, stats.FilesFailed)
		fmt.Printf("  Docs:    %s\n", docsDir)
		fmt.Printf("  Diagram: %s", diagramPath)
		if result.UsedFallback {
			fmt.Print("  (fallback template)")
		}
		fmt.Println()
		return nil
	},
}

// loadConfig layers: defaults ← config file ← explicitly set flags.
func loadConfig(cmd *cobra.Command, root string) (config.Config, error) {
	var cfg config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.Load(flagConfig, true)
	} else {
		cfg, err = config.LoadRoot(root)
	}
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flagOllama != "" {
		cfg.OllamaURL = flagOllama
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flags.Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens = flagMaxTokens
	}
	if flags.Changed("diagram-model") {
		cfg.DiagramModel = flagDiagramModel
	}
	if flags.Changed("threat-model") {
		cfg.ThreatModel = flagThreatModel
	}
	if flags.Changed("docs-dir") {
		cfg.DocsDir = flagDocsDir
	}
	if flags.Changed("enable-languages") {
		cfg.EnableLanguages = splitList(flagEnableLangs)
	}
	if flags.Changed("disable-languages") {
		cfg.DisableLanguages = splitList(flagDisableLangs)
	}
	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// recordRun appends the run to the history database; history is
// observability, so failures only warn.
func recordRun(root string, started time.Time, stats *scan.Stats, result diagram.Result) {
	h, err := store.Open(historyPath(root))
	if err != nil {
		logrus.WithError(err).Warn("opening run history failed")
		return
	}
	defer h.Close()

	_, err = h.RecordRun(store.Run{
		Root:          root,
		StartedAt:     started,
		Duration:      time.Since(started),
		FilesTotal:    stats.FilesTotal,
		FilesChanged:  stats.FilesChanged,
		FilesReused:   stats.FilesReused,
		FilesFailed:   stats.FilesFailed,
		SamplePercent: result.SampledPercent,
		UsedFallback:  result.UsedFallback,
	})
	if err != nil {
		logrus.WithError(err).Warn("recording run history failed")
	}
}

func init() {
	scanCmd.Flags().IntVar(&flagWorkers, "workers", 8, "parallel workers")
	scanCmd.Flags().IntVar(&flagMaxTokens, "max-tokens", 4096, "token budget per file before truncation")
	scanCmd.Flags().StringVar(&flagDiagramModel, "diagram-model", "", "model for diagram generation (default: same as --model)")
	scanCmd.Flags().BoolVar(&flagThreatModel, "threat-model", false, "also generate a per-file threat-model report")
	scanCmd.Flags().BoolVar(&flagTUI, "tui", false, "show interactive progress UI")
	scanCmd.Flags().StringVar(&flagDocsDir, "docs-dir", "", "documentation output directory (default <root>/.wraith/docs)")
	scanCmd.Flags().StringVar(&flagEnableLangs, "enable-languages", "", "comma-separated languages to scan (default: all)")
	scanCmd.Flags().StringVar(&flagDisableLangs, "disable-languages", "", "comma-separated languages to skip")
	rootCmd.AddCommand(scanCmd)
}
