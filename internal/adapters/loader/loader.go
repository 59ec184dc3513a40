// Package loader provides document loading adapters.
// A source is either a URL or a local file path; the multi-loader picks
// the right adapter and every adapter returns a plain-text Document.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

// MultiLoader dispatches by source shape: http(s) URLs go to the web
// loader, .pdf files to the PDF loader, everything else to the text loader.
type MultiLoader struct {
	web  *WebLoader
	pdf  *PDFLoader
	text *TextLoader
}

// NewMultiLoader creates a loader that handles URLs, PDFs, and text files.
// pdfParserURL may be empty; PDF loading then fails with a parse error.
func NewMultiLoader(pdfParserURL string) *MultiLoader {
	return &MultiLoader{
		web:  NewWebLoader(),
		pdf:  NewPDFLoader(pdfParserURL),
		text: NewTextLoader(),
	}
}

// Load reads a document from a URL or a local file path.
func (m *MultiLoader) Load(ctx context.Context, source string) (*entities.Document, error) {
	if source == "" {
		return nil, fmt.Errorf("%w: empty source", entities.ErrInvalidInput)
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return m.web.Load(ctx, source)
	}
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return m.pdf.Load(ctx, source)
	}
	return m.text.Load(ctx, source)
}

// generateDocID creates a deterministic ID for a document source.
func generateDocID(source string) string {
	hash := sha256.Sum256([]byte(source))
	return hex.EncodeToString(hash[:8])
}
