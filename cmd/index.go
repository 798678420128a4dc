package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/auto-analyst/internal/knowledge"
	"github.com/ziadkadry99/auto-analyst/internal/progress"
)

const indexBatchSize = 16

var indexCmd = &cobra.Command{
	Use:   "index [notes-dir]",
	Short: "Build the knowledge index from markdown notes",
	Long: `Reads knowledge notes (markdown with a YAML front matter holding at least a
summary) matching knowledge.include and not knowledge.exclude, embeds them,
and writes the index consulted when solution options are proposed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg, os.Stderr)

		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		notes, err := knowledge.LoadNotes(root, cfg.Knowledge.Include, cfg.Knowledge.Exclude)
		if err != nil {
			return fmt.Errorf("loading notes from %s: %w", root, err)
		}
		if len(notes) == 0 {
			fmt.Fprintf(os.Stderr, "No notes with a summary found under %s.\n", root)
			return nil
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		index, err := knowledge.NewIndex(embedder, knowledge.IndexOptions{})
		if err != nil {
			return err
		}

		reporter := progress.New(os.Stderr, "Indexing notes")
		reporter.Start(len(notes))
		for i := 0; i < len(notes); i += indexBatchSize {
			batch := notes[i:min(i+indexBatchSize, len(notes))]
			if err := index.Add(cmd.Context(), batch); err != nil {
				reporter.Finish()
				return fmt.Errorf("indexing notes: %w", err)
			}
			reporter.Update(i+len(batch), batch[len(batch)-1].Title)
		}
		reporter.Finish()

		if err := index.Persist(cfg.Knowledge.IndexDir); err != nil {
			return fmt.Errorf("writing index: %w", err)
		}
		logger.Info("knowledge index written",
			"notes", index.Count(),
			"dir", cfg.Knowledge.IndexDir,
			"embedder", embedder.Name(),
			"elapsed", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
