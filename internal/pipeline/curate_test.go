package pipeline

import (
	"context"
	"errors"

	"newsroom/internal/curation"
	"newsroom/internal/domain"
)

func completeResult() *curation.Result {
	return &curation.Result{
		Curated: domain.CuratedContent{
			Summary:          "A concise summary.",
			RewrittenContent: "A full rewritten article body.",
			Entities:         domain.Entities{People: []string{"Jane Doe"}},
			Hashtags:         []string{"#Tech", "#News"},
		},
		Platforms: domain.PlatformContent{
			Website: domain.WebsiteContent{
				Title:      "SEO headline",
				Summary:    "Website summary paragraph.",
				Paragraphs: []string{"First.", "Second.", "Third."},
			},
			Telegram:  domain.TelegramContent{Teaser: "🚀 Big news today."},
			Instagram: domain.InstagramContent{Caption: "🔥 Big news.", Hashtags: []string{"#Tech"}},
		},
	}
}

func (s *PipelineTestSuite) TestCurate_Success() {
	ctx := context.Background()
	raw := []domain.Article{{ID: 1, Title: "T", Content: "body", Status: domain.StatusRaw}}
	result := completeResult()

	s.store.EXPECT().FindByStatus(ctx, domain.StatusRaw, 10).Return(raw, nil)
	s.curator.EXPECT().Curate(ctx, &raw[0]).Return(result, nil)
	s.store.EXPECT().SaveCurated(ctx, int64(1), &result.Curated, &result.Platforms).
		Return(true, nil)

	stage := s.pipeline.Curate(ctx)

	s.NoError(stage.Err)
	s.Equal(1, stage.Processed)
	s.Equal(0, stage.Failed)
}

func (s *PipelineTestSuite) TestCurate_LLMFailureLeavesArticleRaw() {
	ctx := context.Background()
	raw := []domain.Article{{ID: 1, Status: domain.StatusRaw}}

	s.store.EXPECT().FindByStatus(ctx, domain.StatusRaw, 10).Return(raw, nil)
	s.curator.EXPECT().Curate(ctx, &raw[0]).Return(nil, errors.New("llm timeout"))

	stage := s.pipeline.Curate(ctx)

	s.NoError(stage.Err)
	s.Equal(0, stage.Processed)
	s.Equal(1, stage.Failed)
}

func (s *PipelineTestSuite) TestCurate_IncompleteContentIsNotSaved() {
	ctx := context.Background()
	raw := []domain.Article{{ID: 1, Status: domain.StatusRaw}}

	result := completeResult()
	result.Platforms.Telegram.Teaser = ""

	s.store.EXPECT().FindByStatus(ctx, domain.StatusRaw, 10).Return(raw, nil)
	s.curator.EXPECT().Curate(ctx, &raw[0]).Return(result, nil)

	stage := s.pipeline.Curate(ctx)

	s.Equal(0, stage.Processed)
	s.Equal(1, stage.Failed)
}

func (s *PipelineTestSuite) TestCurate_LostRaceCountsAsSkipped() {
	ctx := context.Background()
	raw := []domain.Article{{ID: 1, Status: domain.StatusRaw}}
	result := completeResult()

	s.store.EXPECT().FindByStatus(ctx, domain.StatusRaw, 10).Return(raw, nil)
	s.curator.EXPECT().Curate(ctx, &raw[0]).Return(result, nil)
	s.store.EXPECT().SaveCurated(ctx, int64(1), &result.Curated, &result.Platforms).
		Return(false, nil)

	stage := s.pipeline.Curate(ctx)

	s.Equal(0, stage.Processed)
	s.Equal(1, stage.Skipped)
}
