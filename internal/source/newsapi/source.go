package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"newsroom/internal/domain"
)

const (
	SourceID = "NewsAPI"
	baseURL  = "https://newsapi.org/v2/top-headlines"
)

// Config holds NewsAPI source configuration.
type Config struct {
	APIKey     string
	Categories []string
	Timeout    time.Duration
}

// Source fetches trending headlines per category from newsapi.org.
type Source struct {
	httpClient *http.Client
	apiKey     string
	categories []string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		categories: cfg.Categories,
		logger:     logger.With("source", SourceID),
	}
}

// ID returns the aggregator identifier.
func (s *Source) ID() string {
	return SourceID
}

// Fetch walks the configured categories until it has collected limit
// headlines. A single category failure is logged and skipped.
func (s *Source) Fetch(ctx context.Context, limit int) ([]domain.Article, error) {
	var articles []domain.Article

	for _, category := range s.categories {
		if len(articles) >= limit {
			break
		}
		batch, err := s.fetchCategory(ctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return articles, ctx.Err()
			}
			s.logger.Warn("category fetch failed", "category", category, "error", err)
			continue
		}
		articles = append(articles, batch...)
		s.logger.Debug("fetched category",
			"category", category,
			"articles", len(batch),
			"total", len(articles),
		)
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (s *Source) fetchCategory(ctx context.Context, category string) ([]domain.Article, error) {
	params := url.Values{}
	params.Set("category", category)
	params.Set("language", "en")
	params.Set("pageSize", "20")
	params.Set("country", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
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
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("api error: %s", apiResp.Message)
	}

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
			ImageURL:    c.URLToImage,
		}
		if t, err := time.Parse(time.RFC3339, c.PublishedAt); err == nil {
			article.PublishedAt = t
		}
		articles = append(articles, article)
	}
	return articles
}
