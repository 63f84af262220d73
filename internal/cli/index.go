package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"demandcast/config"
	"demandcast/internal/logger"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed catalog names for semantic search",
	Long: `Embed every catalog display name and store the vectors in the configured
index (.demandcast/index.db, or inventory_master.embedding with the postgres
backend). Unchanged names are skipped; --rebuild starts from an empty index.

Examples:
  demandcast index
  demandcast index --rebuild`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "clear the index before embedding")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if !cfg.Embedding.Enabled {
		return errors.WithHint(
			errors.New("embeddings are disabled"),
			"Set embedding.enabled: true in demandcast.yaml.",
		)
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, cfg, GetRootDir(), buildOptions{rebuild: indexRebuild})
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Embedding config: provider=%s, model=%s, backend=%s\n", cfg.Embedding.Provider, a.embedder.ModelName(), cfg.Index.Backend)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		_ = bar.Set(done)

		elapsed := time.Since(startTime)
		if done > 0 && elapsed > 0 {
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := a.indexer.Build(ctx, progressCallback)
	if err != nil {
		return errors.Wrap(err, "indexing failed")
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Items embedded: %d\n", result.Embedded)
	fmt.Printf("  Items skipped:  %d (unchanged)\n", result.Skipped)
	fmt.Printf("  Items deleted:  %d (removed)\n", result.Deleted)
	if a.bolt != nil {
		fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(a.root))
	}
	return nil
}

// syncIndex brings the vector index up to date before answering, when
// index.build_on_start is set.
func (a *app) syncIndex(ctx context.Context) error {
	if a.indexer == nil || !a.cfg.Index.BuildOnStart {
		return nil
	}
	res, err := a.indexer.Build(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "update vector index")
	}
	if res.Embedded > 0 || res.Deleted > 0 {
		a.resolver.Cache().Invalidate()
	}
	logger.Logger.Debugw("Vector index up to date", logger.FieldEmbedded, res.Embedded, logger.FieldDeleted, res.Deleted)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
