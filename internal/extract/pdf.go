// Package extract turns PDF bytes into ordered per-page plain text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrUnreadableDocument is returned when the byte stream is not a valid PDF.
var ErrUnreadableDocument = errors.New("unreadable document")

// pdfcpu names extracted content files <base>_Content_page_<n>.txt
var contentPagePattern = regexp.MustCompile(`_page_(\d+)\.txt$`)

// PDFExtractor extracts page text from PDF documents using pdfcpu.
type PDFExtractor struct {
	conf *model.Configuration
}

// NewPDFExtractor creates a new PDFExtractor with the default pdfcpu configuration
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{conf: model.NewDefaultConfiguration()}
}

// Pages extracts plain text from every page of the document, in page order.
// Pages without extractable text yield an empty string at their position.
// pdfcpu works on files, so the bytes go through a scratch directory that is
// removed on every exit path.
func (e *PDFExtractor) Pages(_ context.Context, data []byte) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "paperbase_extract_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	pageCount, err := api.PageCountFile(inFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	outDir := filepath.Join(tmpDir, "content")
	if err := os.MkdirAll(outDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}

	if err := api.ExtractContentFile(inFile, outDir, nil, e.conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	pages := make([]string, pageCount)

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		match := contentPagePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		pageNr, err := strconv.Atoi(match[1])
		if err != nil || pageNr < 1 || pageNr > pageCount {
			continue
		}
		text, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read page content: %w", err)
		}
		pages[pageNr-1] = string(text)
	}

	return pages, nil
}
