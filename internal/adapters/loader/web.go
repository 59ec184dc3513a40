package loader

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/veronica-ai/assistant-go/internal/domain/entities"
	"github.com/veronica-ai/assistant-go/internal/logger"
)

// maxFetchBytes caps how much of a page is read. Pages past this are
// truncated, not rejected.
const maxFetchBytes = 8 << 20

// WebLoader fetches a URL and converts the page to plain text.
type WebLoader struct {
	client    *http.Client
	userAgent string
}

// NewWebLoader creates a URL loader.
func NewWebLoader() *WebLoader {
	return &WebLoader{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "assistant-go/1.0",
	}
}

// Load fetches the URL. Non-2xx responses and non-text content types are
// fetch errors; the caller gets no partial document.
func (l *WebLoader) Load(ctx context.Context, url string) (*entities.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request for %s: %v", entities.ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", entities.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", entities.ErrFetch, url, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isTextContentType(contentType) {
		return nil, fmt.Errorf("%w: %s has unsupported content type %q", entities.ErrFetch, url, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", entities.ErrFetch, url, err)
	}

	raw := string(body)
	content := raw
	title := url
	if strings.Contains(contentType, "html") {
		title = extractTitle(raw, url)
		content = stripHTML(raw)
	}

	logger.Debug("fetched %s: %d bytes, %d chars of text", url, len(body), len(content))

	return &entities.Document{
		ID:        generateDocID(url),
		Name:      title,
		Source:    url,
		Content:   content,
		CreatedAt: time.Now(),
	}, nil
}

func isTextContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"):
		return true
	case strings.Contains(ct, "html"), strings.Contains(ct, "xml"), strings.Contains(ct, "json"):
		return true
	}
	return false
}

// Pre-compiled regular expressions for HTML-to-text conversion.
var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<br\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractTitle pulls the <title> text, falling back to the URL.
func extractTitle(content, url string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		title := strings.TrimSpace(html.UnescapeString(matches[1]))
		if title != "" {
			return title
		}
	}
	return url
}

// stripHTML converts an HTML page to readable plain text: scripts, styles
// and comments dropped, block boundaries become newlines, entities decoded.
func stripHTML(content string) string {
	content = htmlComments.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = brTags.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	// Trim trailing spaces per line, then collapse blank runs
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")

	return strings.TrimSpace(content)
}
