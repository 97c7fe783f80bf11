package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"wraith/internal/store"
)

var flagRunsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs <path>",
	Short: "List recent scan runs for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		dbPath := historyPath(root)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("no run history at %s\nRun 'wraith scan %s' first", dbPath, args[0])
		}

		h, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer h.Close()

		runs, err := h.ListRuns(flagRunsLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%-4s %-20s %-10s %-28s %-8s %s\n", "ID", "Started", "Duration", "Files (total/gen/reuse/fail)", "Sample", "Diagram")
		for _, r := range runs {
			diagramState := "generated"
			if r.UsedFallback {
				diagramState = "fallback"
			}
			fmt.Printf("%-4d %-20s %-10s %-28s %-8s %s\n",
				r.ID,
				r.StartedAt.Local().Format(time.DateTime),
				r.Duration.Round(time.Millisecond),
				fmt.Sprintf("%d/%d/%d/%d", r.FilesTotal, r.FilesChanged, r.FilesReused, r.FilesFailed),
				fmt.Sprintf("%.0f%%", r.SamplePercent),
				diagramState,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&flagRunsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
