package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrInsufficientContent is returned when a page yields too little paragraph
// text to be worth curating.
var ErrInsufficientContent = fmt.Errorf("insufficient article content")

const minContentLength = 100

// Extractor pulls article body text out of a source page by collecting its
// paragraph elements.
type Extractor struct {
	client    *http.Client
	userAgent string
}

func New(userAgent string, timeout time.Duration) *Extractor {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Extract fetches the page and returns its cleaned paragraph text.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	text := CleanText(strings.Join(parts, " "))
	if len(text) < minContentLength {
		return "", ErrInsufficientContent
	}
	return text, nil
}

// CleanText normalizes whitespace and strips characters that trip up
// downstream prompt building.
func CleanText(text string) string {
	replacer := strings.NewReplacer(
		"’", "'",
		"\\", "",
		" ", " ",
		"\n", " ",
		"\r", "",
	)
	text = replacer.Replace(text)
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return strings.TrimSpace(text)
}
