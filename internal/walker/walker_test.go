package walker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFile creates a file (and any parent directories) under root.
func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", relPath, err)
	}
}

// sampleCorpus builds a small document tree and returns its root.
func sampleCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Handbook\n\nWelcome.")
	writeFile(t, root, "policies/refunds.md", "Refunds are issued within 30 days.")
	writeFile(t, root, "policies/shipping.txt", "Standard shipping takes 5 business days.")
	writeFile(t, root, "notes/draft.md", "Unfinished draft.")
	return root
}

func TestWalkBasicTraversal(t *testing.T) {
	root := sampleCorpus(t)

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	found := map[string]bool{}
	for _, f := range files {
		found[f.RelPath] = true
	}
	for _, want := range []string{"README.md", "policies/refunds.md", "policies/shipping.txt", "notes/draft.md"} {
		if !found[want] {
			t.Errorf("expected file %q in walk results, got %v", want, found)
		}
	}
}

func TestWalkFileInfoFields(t *testing.T) {
	root := sampleCorpus(t)

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.Path == "" || f.RelPath == "" {
			t.Errorf("incomplete FileInfo: %+v", f)
		}
		if f.Size <= 0 {
			t.Errorf("%s: size should be positive, got %d", f.RelPath, f.Size)
		}
		if len(f.ContentHash) != 64 {
			t.Errorf("%s: content hash should be a sha256 hex digest, got %q", f.RelPath, f.ContentHash)
		}
	}
}

func TestWalkIncludePatterns(t *testing.T) {
	root := sampleCorpus(t)

	files, err := Walk(Config{RootDir: root, Include: []string{"**/*.md"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if filepath.Ext(f.RelPath) != ".md" {
			t.Errorf("include filter leaked %q", f.RelPath)
		}
	}
	if len(files) != 3 {
		t.Errorf("expected 3 markdown files, got %d", len(files))
	}
}

func TestWalkExcludePatterns(t *testing.T) {
	root := sampleCorpus(t)

	files, err := Walk(Config{RootDir: root, Exclude: []string{"notes/**"}})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.RelPath == "notes/draft.md" {
			t.Error("excluded file was returned")
		}
	}
}

func TestWalkSkipsBinaryFiles(t *testing.T) {
	root := sampleCorpus(t)
	writeFile(t, root, "image.png", "\x89PNG\x00\x00binary")

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.RelPath == "image.png" {
			t.Error("binary file was returned")
		}
	}
}

func TestWalkSkipsOversizedFiles(t *testing.T) {
	root := sampleCorpus(t)
	writeFile(t, root, "big.md", strings.Repeat("a", 100))

	files, err := Walk(Config{RootDir: root, MaxFileSize: 50})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.RelPath == "big.md" {
			t.Error("oversized file was returned")
		}
	}
}

func TestWalkHonoursGitignore(t *testing.T) {
	root := sampleCorpus(t)
	writeFile(t, root, ".gitignore", "notes/\n*.txt\n")

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.RelPath == "policies/shipping.txt" {
			t.Error("gitignored file was returned")
		}
	}
}

func TestWalkSkipsDefaultExcludedDirs(t *testing.T) {
	root := sampleCorpus(t)
	writeFile(t, root, ".ragent/ragent.db-journal", "not a document")
	writeFile(t, root, "node_modules/pkg/readme.md", "vendored")

	files, err := Walk(Config{RootDir: root})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}

	for _, f := range files {
		if f.RelPath == ".ragent/ragent.db-journal" || f.RelPath == "node_modules/pkg/readme.md" {
			t.Errorf("default-excluded file was returned: %s", f.RelPath)
		}
	}
}
