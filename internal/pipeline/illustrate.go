package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"newsroom/internal/domain"
)

// Illustrate generates the image set for curated articles. Each article is
// claimed with an atomic curated -> generating_assets transition before any
// external call is made, so two overlapping runs can never illustrate the
// same article twice. Whatever the attempt produces is saved; the retry
// sweep decides later whether the set was good enough.
func (p *Pipeline) Illustrate(ctx context.Context) domain.StageResult {
	start := time.Now()
	result := domain.StageResult{Stage: "illustrate"}

	if !p.config.ImagesEnabled {
		p.logger.Debug("illustration disabled, skipping")
		return result
	}

	articles, err := p.store.FindForIllustration(ctx, p.config.RetryCeiling, p.config.IllustrationBatch)
	if err != nil {
		result.Err = err
		return result
	}

	for i := range articles {
		article := &articles[i]

		claimed, err := p.store.ClaimStatus(ctx, article.ID,
			domain.StatusCurated, domain.StatusGeneratingAssets)
		if err != nil {
			result.Err = err
			break
		}
		if !claimed {
			result.Skipped++
			continue
		}

		assets, prompts, err := p.illustrateOne(ctx, article)
		if err != nil {
			// The article stays in generating_assets, visible in the
			// status counts until an operator looks at it.
			if ctx.Err() != nil {
				result.Err = ctx.Err()
				break
			}
			p.logger.Error("illustration aborted",
				"article_id", article.ID,
				"error", err,
			)
			result.Failed++
			continue
		}

		saved, err := p.store.SaveAssets(ctx, article.ID, assets, prompts)
		if err != nil {
			result.Err = err
			break
		}
		if !saved {
			result.Skipped++
			continue
		}

		if assets.Complete() {
			result.Processed++
		} else {
			p.logger.Warn("partial asset set saved",
				"article_id", article.ID,
				"slots", assets.SlotCount(),
				"retry_count", article.ImageRetryCount,
			)
			result.Failed++
		}
	}

	p.logger.Info("illustration completed",
		"complete", result.Processed,
		"partial", result.Failed,
		"skipped", result.Skipped,
	)

	result.Duration = time.Since(start)
	return result
}

// illustrateOne produces up to three generated images and assembles the
// asset set. The website and telegram renders are shared into the first two
// gallery slots; only the third gallery image is a unique portrait render.
func (p *Pipeline) illustrateOne(ctx context.Context, article *domain.Article) (*domain.AssetSet, []string, error) {
	summary := ""
	if article.Curated != nil {
		summary = article.Curated.Summary
	}

	prompts, err := p.prompts.WritePrompts(ctx, article.Title, summary)
	if err != nil {
		return nil, nil, fmt.Errorf("write prompts: %w", err)
	}

	dir := filepath.Join(p.config.OutputDir, fmt.Sprintf("article_%d", article.ID))
	seed := time.Now().UnixNano() % 1_000_000

	assets := &domain.AssetSet{}

	website := p.generateAsset(ctx, prompts[0], p.config.WebsiteImage.Width,
		p.config.WebsiteImage.Height, seed, filepath.Join(dir, "website.jpg"))
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	assets.Website = website

	telegram := p.generateAsset(ctx, prompts[1], p.config.TelegramImage.Width,
		p.config.TelegramImage.Height, seed+100, filepath.Join(dir, "telegram.jpg"))
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	assets.Telegram = telegram

	if website != nil {
		assets.Instagram = append(assets.Instagram, *website)
	}
	if telegram != nil {
		assets.Instagram = append(assets.Instagram, *telegram)
	}

	portrait := p.generateAsset(ctx, prompts[2], p.config.PortraitImage.Width,
		p.config.PortraitImage.Height, seed+200, filepath.Join(dir, "portrait.jpg"))
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	if portrait != nil {
		assets.Instagram = append(assets.Instagram, *portrait)
	}

	return assets, prompts, nil
}

// generateAsset renders one image, returning nil on failure so the caller
// can save a partial set.
func (p *Pipeline) generateAsset(ctx context.Context, prompt string, width, height int, seed int64, path string) *domain.Asset {
	if err := p.images.Generate(ctx, prompt, width, height, seed, path); err != nil {
		p.logger.Warn("image generation failed",
			"path", path,
			"error", err,
		)
		return nil
	}
	return &domain.Asset{
		Path:   path,
		Prompt: prompt,
		Width:  width,
		Height: height,
	}
}

// RetrySweep is the regression pass between illustration and dispatch.
// Illustrated articles with holes in their asset set go back to curated with
// a bumped retry count, before dispatch selection can see them; articles
// that hit the ceiling while still incomplete are parked for good.
func (p *Pipeline) RetrySweep(ctx context.Context) domain.StageResult {
	start := time.Now()
	result := domain.StageResult{Stage: "retry_sweep"}

	if !p.config.ImagesEnabled {
		return result
	}

	incomplete, err := p.store.FindIncompleteAssets(ctx, p.config.RetryCeiling, p.config.SweepBatch)
	if err != nil {
		result.Err = err
		return result
	}

	for i := range incomplete {
		article := &incomplete[i]

		marked, err := p.store.MarkForAssetRetry(ctx, article.ID)
		if err != nil {
			result.Err = err
			return result
		}
		if !marked {
			result.Skipped++
			continue
		}
		p.logger.Info("queued for illustration retry",
			"article_id", article.ID,
			"retry_count", article.ImageRetryCount+1,
		)
		result.Retried++
	}

	parked, err := p.store.ParkExhausted(ctx, p.config.RetryCeiling)
	if err != nil {
		result.Err = err
		return result
	}
	if parked > 0 {
		p.logger.Warn("parked articles with exhausted retries", "count", parked)
	}
	result.Failed = parked

	result.Duration = time.Since(start)
	return result
}
