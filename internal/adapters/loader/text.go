package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

// TextLoader loads plain text documents (.txt, .md).
type TextLoader struct{}

// NewTextLoader creates a new text document loader.
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Load reads a text document from the given path. Content that is not
// valid UTF-8 is rejected rather than indexed as garbage.
func (l *TextLoader) Load(_ context.Context, path string) (*entities.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", entities.ErrParse, path, err)
	}

	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", entities.ErrParse, path)
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Source:    path,
		Content:   string(content),
		CreatedAt: time.Now(),
	}, nil
}
