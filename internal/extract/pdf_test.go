package extract

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestExtractPDF_Nonexistent(t *testing.T) {
	if _, err := ExtractPDF(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a PDF"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractPDF(path); err == nil {
		t.Error("expected error for non-PDF bytes")
	}
}

func TestProcessDirectory_SkipsBrokenFiles(t *testing.T) {
	inDir := t.TempDir()
	outDir := t.TempDir()
	// A corrupt PDF and a non-PDF file: neither stops the batch.
	if err := os.WriteFile(filepath.Join(inDir, "broken.pdf"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(inDir, "readme.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := ProcessDirectory(inDir, outDir, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("processed=%d, want 0", n)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("output dir should be empty, got %d entries", len(entries))
	}
}

func TestProcessDirectory_MissingInputDir(t *testing.T) {
	if _, err := ProcessDirectory(filepath.Join(t.TempDir(), "absent"), t.TempDir(), zap.NewNop()); err == nil {
		t.Error("expected error for missing input directory")
	}
}
