package pipeline

import (
	"context"
	"time"

	"newsroom/internal/domain"
)

// Curate runs the LLM curation flow over a batch of raw articles. The
// raw -> curated transition commits only when both content halves are
// complete; anything less leaves the article raw for the next cycle.
func (p *Pipeline) Curate(ctx context.Context) domain.StageResult {
	start := time.Now()
	result := domain.StageResult{Stage: "curate"}

	articles, err := p.store.FindByStatus(ctx, domain.StatusRaw, p.config.CurationBatch)
	if err != nil {
		result.Err = err
		return result
	}

	for i := range articles {
		article := &articles[i]

		curated, err := p.curator.Curate(ctx, article)
		if err != nil {
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				break
			}
			p.logger.Warn("curation failed",
				"article_id", article.ID,
				"error", err,
			)
			result.Failed++
			continue
		}

		if !curated.Curated.Complete() || !curated.Platforms.Complete() {
			p.logger.Warn("curation produced incomplete content",
				"article_id", article.ID,
			)
			result.Failed++
			continue
		}

		saved, err := p.store.SaveCurated(ctx, article.ID, &curated.Curated, &curated.Platforms)
		if err != nil {
			result.Err = err
			break
		}
		if !saved {
			// Another run curated it while we were talking to the LLM.
			result.Skipped++
			continue
		}
		result.Processed++
	}

	p.logger.Info("curation completed",
		"processed", result.Processed,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)

	result.Duration = time.Since(start)
	return result
}
