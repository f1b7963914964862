package pipeline

import (
	"context"
	"time"

	"newsroom/internal/domain"
	"newsroom/internal/storage/postgres"
)

// Ingest pulls headlines from every configured source, picks a diverse
// subset, scrapes full article text and stores the survivors as raw items.
// A failing source is logged and skipped so one broken aggregator never
// starves the cycle.
func (p *Pipeline) Ingest(ctx context.Context) domain.StageResult {
	start := time.Now()
	result := domain.StageResult{Stage: "ingest"}
	ingest := domain.IngestStats{}

	var fetched []domain.Article
	totalLimit := 0
	for _, fs := range p.sources {
		totalLimit += fs.Limit

		articles, err := fs.Source.Fetch(ctx, fs.Limit)
		if err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				return result
			}
			p.logger.Warn("source fetch failed",
				"source", fs.Source.ID(),
				"error", err,
			)
			ingest.Errors++
			continue
		}
		fetched = append(fetched, articles...)
	}
	ingest.Fetched = len(fetched)

	selected := selectDiverse(fetched, totalLimit)
	ingest.Selected = len(selected)

	for i := range selected {
		article := &selected[i]

		content, err := p.extractor.Extract(ctx, article.URL)
		if err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				break
			}
			p.logger.Debug("content extraction failed",
				"url", article.URL,
				"error", err,
			)
			ingest.Errors++
			continue
		}
		article.Content = content

		res, err := p.store.Insert(ctx, article)
		if err != nil {
			result.Err = err
			break
		}
		if res == postgres.Duplicate {
			ingest.Duplicates++
			continue
		}
		ingest.Inserted++
	}

	p.logger.Info("ingest completed",
		"fetched", ingest.Fetched,
		"selected", ingest.Selected,
		"inserted", ingest.Inserted,
		"duplicates", ingest.Duplicates,
		"errors", ingest.Errors,
	)

	result.Processed = ingest.Inserted
	result.Skipped = ingest.Duplicates
	result.Failed = ingest.Errors
	result.Duration = time.Since(start)
	return result
}

// selectDiverse dedupes by URL and then round-robins across outlets so one
// prolific publisher cannot fill the whole batch.
func selectDiverse(articles []domain.Article, limit int) []domain.Article {
	if limit <= 0 || len(articles) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(articles))
	byOutlet := make(map[string][]domain.Article)
	var outlets []string

	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		if _, ok := byOutlet[a.Source]; !ok {
			outlets = append(outlets, a.Source)
		}
		byOutlet[a.Source] = append(byOutlet[a.Source], a)
	}

	var selected []domain.Article
	for round := 0; len(selected) < limit; round++ {
		picked := false
		for _, outlet := range outlets {
			queue := byOutlet[outlet]
			if round >= len(queue) {
				continue
			}
			selected = append(selected, queue[round])
			picked = true
			if len(selected) == limit {
				break
			}
		}
		if !picked {
			break
		}
	}
	return selected
}
