package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alea-labs/kl3mpipe/internal/model"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF extracts page text from a PDF payload using pdfcpu, matching the
// teacher's pdf.Extractor.ExtractPages shape: write to a scratch file
// (pdfcpu has no in-memory-only content extraction entry point), read the
// page count, extract per-page content, and concatenate the pages in order,
// separated by a blank line.
func PDF(content []byte, source, identifier string) (Result, error) {
	tempDir := filepath.Join(os.TempDir(), "kl3mpipe-pdf")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf scratch dir: %w", err)
	}

	runID := uuid.NewString()
	tempFile := filepath.Join(tempDir, runID+".pdf")
	if err := os.WriteFile(tempFile, content, 0o644); err != nil {
		return nil, fmt.Errorf("write pdf scratch file: %w", err)
	}
	defer os.Remove(tempFile)

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("read pdf context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(tempDir, runID+"-pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf page output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := pdfmodel.NewDefaultConfiguration()
	pageTexts := make(map[int]string)
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err == nil {
		entries, _ := os.ReadDir(outDir)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			pageNum, ok := parsePageNumber(entry.Name())
			if !ok {
				continue
			}
			data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
			if err == nil {
				pageTexts[pageNum] = string(data)
			}
		}
	}

	var b strings.Builder
	for page := 1; page <= pageCount; page++ {
		if page > 1 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageTexts[page])
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, fmt.Errorf("no text extracted from pdf %s", identifier)
	}

	return single(source, identifier, map[string]*model.Representation{
		"text/plain": {Content: text, MimeType: "text/plain"},
	}), nil
}

// parsePageNumber extracts the page number pdfcpu embeds in its extracted
// content filenames ("page_N..." or "Content_page_N...").
func parsePageNumber(filename string) (int, bool) {
	for _, prefix := range []string{"Content_page_", "page_"} {
		if !strings.HasPrefix(filename, prefix) {
			continue
		}
		rest := strings.TrimPrefix(filename, prefix)
		rest = strings.TrimSuffix(rest, filepath.Ext(rest))
		if n, err := strconv.Atoi(rest); err == nil {
			return n, true
		}
	}
	return 0, false
}
