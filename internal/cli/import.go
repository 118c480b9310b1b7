package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCommand(a *app) *cobra.Command {
	var quiet, watch bool
	cmd := &cobra.Command{
		Use:   "import <collection> <pattern>",
		Short: "Bulk import JSONL files",
		Long: `Import every file matching pattern into an existing collection. Each line is a
JSON object {"id": "...", "text": "..."}. Patterns support ** (for example
"data/**/*.jsonl"). Items whose id is already indexed are skipped.

With --watch, the command keeps running and re-imports a matching file whenever it is
created or written, so appended lines are picked up. Edited lines keep their old text.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, pattern := args[0], args[1]
			files, err := indexer.MatchFiles(pattern)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files match %q", pattern)
			}
			var items []models.Item
			for _, f := range files {
				fileItems, err := indexer.ReadItemsFile(f)
				if err != nil {
					return err
				}
				items = append(items, fileItems...)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Read %d item(s) from %d file(s)\n", len(items), len(files))

			b, err := a.backend()
			if err != nil {
				return err
			}
			defer b.Close()

			progressOut := cmd.ErrOrStderr()
			if quiet {
				progressOut = io.Discard
			}
			bar := newProgressBar(progressOut, len(items))
			stats, err := b.IndexItems(cmd.Context(), coll, items, func(done, total int) {
				_ = bar.Set(done)
			})
			_ = bar.Finish()
			if err != nil {
				return fmt.Errorf("import failed after %d indexed, %d skipped: %w", stats.Indexed, stats.Skipped, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported into %s: %d indexed, %d skipped\n", coll, stats.Indexed, stats.Skipped)
			if !watch {
				return nil
			}

			ctx := cmd.Context()
			w, err := startImportWatch(ctx, b, coll, pattern, cmd.OutOrStdout(), a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", pattern)
			<-ctx.Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep importing matching files as they change")
	return cmd
}

// startImportWatch re-imports each matching file after it changes. Imports run one at a time.
func startImportWatch(ctx context.Context, b Backend, coll, pattern string, out io.Writer,
	logger *zap.Logger, opts ...watcher.Option) (*watcher.Watcher, error) {
	var mu sync.Mutex
	onChange := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		items, err := indexer.ReadItemsFile(path)
		if err != nil {
			logger.Warn("watch: read failed", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(out, "%s: %v\n", path, err)
			return
		}
		stats, err := b.IndexItems(ctx, coll, items, nil)
		if err != nil {
			logger.Warn("watch: import failed", zap.String("path", path), zap.Error(err))
			fmt.Fprintf(out, "%s: import failed after %d indexed: %v\n", path, stats.Indexed, err)
			return
		}
		fmt.Fprintf(out, "%s: %d indexed, %d skipped\n", path, stats.Indexed, stats.Skipped)
	}
	w, err := watcher.New(pattern, onChange, append([]watcher.Option{watcher.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to watch %q: %w", pattern, err)
	}
	return w, nil
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
	)
}
