// Package extract converts source PDFs into processed-document records.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/papyra/papyra/internal/models"
	"github.com/papyra/papyra/internal/storage"
	"go.uber.org/zap"
)

// ExtractPDF reads the PDF at path and returns its per-page text with
// metadata.
func ExtractPDF(path string) (*models.ProcessedDocument, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer f.Close()

	numPages := r.NumPage()
	pages := make([]models.PageText, 0, numPages)
	var full strings.Builder
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, models.PageText{PageNumber: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, models.PageText{PageNumber: i, Text: text})
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(text)
	}

	fullText := full.String()
	return &models.ProcessedDocument{
		Metadata: models.DocumentMetadata{
			Filename: filepath.Base(path),
			NumPages: numPages,
			HasText:  strings.TrimSpace(fullText) != "",
		},
		FullText: fullText,
		Pages:    pages,
	}, nil
}

// ProcessDirectory extracts every *.pdf in inputDir and writes one processed
// JSON file per paper into outputDir. Per-file failures are logged and do
// not stop the batch. Returns the number of documents processed.
func ProcessDirectory(inputDir, outputDir string, logger *zap.Logger) (int, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return 0, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	logger.Info("processing PDFs", zap.Int("count", len(names)), zap.String("dir", inputDir))

	n := 0
	for _, name := range names {
		path := filepath.Join(inputDir, name)
		doc, err := ExtractPDF(path)
		if err != nil {
			logger.Warn("PDF extraction failed", zap.String("file", name), zap.Error(err))
			continue
		}
		if err := storage.SaveProcessedDocument(outputDir, doc); err != nil {
			logger.Warn("save processed document failed", zap.String("file", name), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
