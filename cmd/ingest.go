package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents into the corpus",
	Long: `Walks a directory tree, filters files by the configured include and
exclude globs, and stores every document in the corpus database. Unchanged
files (by content hash) are skipped on re-ingestion.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rootDir := "."
	if len(args) == 1 {
		rootDir = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	files, err := walker.Walk(walker.Config{
		RootDir: rootDir,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", rootDir, err)
	}
	if len(files) == 0 {
		fmt.Println("No matching documents found.")
		return nil
	}

	store := corpus.NewStore(database)
	existing, err := indexByPath(ctx, store)
	if err != nil {
		return err
	}

	var added, updated, skipped int
	for _, f := range files {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", f.RelPath, err)
			continue
		}

		if prev, ok := existing[f.RelPath]; ok {
			if prev.Metadata["hash"] == f.ContentHash {
				skipped++
				continue
			}
			// Content changed: replace the stored document so the hash
			// metadata stays accurate.
			if err := store.Delete(ctx, prev.ID); err != nil {
				return fmt.Errorf("replacing %s: %w", f.RelPath, err)
			}
			updated++
		} else {
			added++
		}

		doc := corpus.Document{
			Title:   documentTitle(f.RelPath, string(content)),
			Content: string(content),
			Metadata: map[string]string{
				"path": f.RelPath,
				"hash": f.ContentHash,
			},
		}
		if _, err := store.Add(ctx, doc); err != nil {
			return fmt.Errorf("storing %s: %w", f.RelPath, err)
		}
		if verbose {
			fmt.Printf("  + %s (%d bytes)\n", f.RelPath, f.Size)
		}
	}

	fmt.Printf("Ingested %d documents (%d new, %d updated, %d unchanged) into %s\n",
		added+updated, added, updated, skipped, cfg.DatabasePath)
	return nil
}

// indexByPath maps stored documents by their source path metadata so
// re-ingestion can detect unchanged files.
func indexByPath(ctx context.Context, store *corpus.Store) (map[string]corpus.Document, error) {
	docs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing corpus: %w", err)
	}
	byPath := make(map[string]corpus.Document, len(docs))
	for _, doc := range docs {
		if path := doc.Metadata["path"]; path != "" {
			byPath[path] = doc
		}
	}
	return byPath, nil
}

// documentTitle derives a title from the first markdown heading, falling
// back to the file name without extension.
func documentTitle(relPath, content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
				return title
			}
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
	}

	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
