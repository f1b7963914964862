package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"newsroom/internal/domain"
)

const (
	SourceID = "GNews"
	baseURL  = "https://gnews.io/api/v4/top-headlines"
)

// Config holds GNews source configuration.
type Config struct {
	APIKey  string
	Timeout time.Duration
}

// Source fetches general top headlines from gnews.io.
type Source struct {
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		logger:     logger.With("source", SourceID),
	}
}

// ID returns the aggregator identifier.
func (s *Source) ID() string {
	return SourceID
}

// Fetch requests up to limit top headlines. The free tier caps a single
// request at 10, which is plenty for one cycle.
func (s *Source) Fetch(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit > 10 {
		limit = 10
	}

	params := url.Values{}
	params.Set("category", "general")
	params.Set("lang", "en")
	params.Set("max", strconv.Itoa(limit))
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	s.logger.Debug("fetched headlines", "articles", len(apiResp.Articles))
	return transform(apiResp.Articles), nil
}

func transform(contents []Content) []domain.Article {
	articles := make([]domain.Article, 0, len(contents))
	for _, c := range contents {
		if c.URL == "" {
			continue
		}
		article := domain.Article{
			Source:      c.Source.Name,
			APISource:   SourceID,
			Title:       c.Title,
			Description: c.Description,
			URL:         c.URL,
			ImageURL:    c.Image,
		}
		if t, err := time.Parse(time.RFC3339, c.PublishedAt); err == nil {
			article.PublishedAt = t
		}
		articles = append(articles, article)
	}
	return articles
}
