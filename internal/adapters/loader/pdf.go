package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
)

// PDFLoader extracts PDF text through an external parser service.
// Text extraction libraries with acceptable output quality all sit outside
// Go, so the bytes are shipped to a small sidecar that answers
// {"text": ...} or {"error": ...}.
type PDFLoader struct {
	serviceURL string
	client     *http.Client
}

// NewPDFLoader creates a PDF loader talking to the parser sidecar.
func NewPDFLoader(serviceURL string) *PDFLoader {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PDFLoader{
		serviceURL: serviceURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Load reads the PDF and extracts its text. A corrupt or unparseable PDF
// is a parse error; the ingestion aborts rather than indexing noise.
func (l *PDFLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", entities.ErrParse, path, err)
	}

	text, err := l.parsePDF(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting text from %s: %v", entities.ErrParse, path, err)
	}

	return &entities.Document{
		ID:        generateDocID(path),
		Name:      filepath.Base(path),
		Source:    path,
		Content:   text,
		CreatedAt: time.Now(),
	}, nil
}

// parsePDF posts the raw bytes to the parser service.
func (l *PDFLoader) parsePDF(ctx context.Context, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("pdf parse: %s", result.Error)
	}
	return result.Text, nil
}
