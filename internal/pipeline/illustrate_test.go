package pipeline

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"newsroom/internal/domain"
)

func curatedArticle(id int64) domain.Article {
	return domain.Article{
		ID:     id,
		Title:  "Curated article",
		Status: domain.StatusCurated,
		Curated: &domain.CuratedContent{
			Summary:          "summary",
			RewrittenContent: "rewritten",
		},
	}
}

func (s *PipelineTestSuite) TestIllustrate_FullAssetSet() {
	ctx := context.Background()
	articles := []domain.Article{curatedArticle(42)}
	prompts := []string{"wide scene", "close up", "abstract"}

	s.store.EXPECT().FindForIllustration(ctx, 3, 10).Return(articles, nil)
	s.store.EXPECT().ClaimStatus(ctx, int64(42),
		domain.StatusCurated, domain.StatusGeneratingAssets).Return(true, nil)
	s.prompts.EXPECT().WritePrompts(ctx, "Curated article", "summary").
		Return(prompts, nil)
	s.images.EXPECT().
		Generate(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).Times(3)

	var saved *domain.AssetSet
	s.store.EXPECT().SaveAssets(ctx, int64(42), gomock.Any(), prompts).
		DoAndReturn(func(_ context.Context, _ int64, assets *domain.AssetSet, _ []string) (bool, error) {
			saved = assets
			return true, nil
		})

	stage := s.pipeline.Illustrate(ctx)

	s.NoError(stage.Err)
	s.Equal(1, stage.Processed)
	s.Require().NotNil(saved)
	s.True(saved.Complete())
	s.Len(saved.Instagram, 3)
	// The website and telegram renders fill the first two gallery slots.
	s.Equal(saved.Website.Path, saved.Instagram[0].Path)
	s.Equal(saved.Telegram.Path, saved.Instagram[1].Path)
}

func (s *PipelineTestSuite) TestIllustrate_PartialSetIsStillSaved() {
	ctx := context.Background()
	articles := []domain.Article{curatedArticle(7)}
	prompts := []string{"p1", "p2", "p3"}

	s.store.EXPECT().FindForIllustration(ctx, 3, 10).Return(articles, nil)
	s.store.EXPECT().ClaimStatus(ctx, int64(7),
		domain.StatusCurated, domain.StatusGeneratingAssets).Return(true, nil)
	s.prompts.EXPECT().WritePrompts(ctx, gomock.Any(), gomock.Any()).
		Return(prompts, nil)

	// The square telegram render fails, the other two succeed.
	s.images.EXPECT().
		Generate(ctx, "p1", 1280, 720, gomock.Any(), gomock.Any()).Return(nil)
	s.images.EXPECT().
		Generate(ctx, "p2", 512, 512, gomock.Any(), gomock.Any()).
		Return(errors.New("all models exhausted"))
	s.images.EXPECT().
		Generate(ctx, "p3", 1080, 1350, gomock.Any(), gomock.Any()).Return(nil)

	var saved *domain.AssetSet
	s.store.EXPECT().SaveAssets(ctx, int64(7), gomock.Any(), prompts).
		DoAndReturn(func(_ context.Context, _ int64, assets *domain.AssetSet, _ []string) (bool, error) {
			saved = assets
			return true, nil
		})

	stage := s.pipeline.Illustrate(ctx)

	s.NoError(stage.Err)
	s.Equal(0, stage.Processed)
	s.Equal(1, stage.Failed)
	s.Require().NotNil(saved)
	s.False(saved.Complete())
	s.Nil(saved.Telegram)
	s.Len(saved.Instagram, 2)
}

func (s *PipelineTestSuite) TestIllustrate_LostClaimSkipsExternalCalls() {
	ctx := context.Background()
	articles := []domain.Article{curatedArticle(9)}

	s.store.EXPECT().FindForIllustration(ctx, 3, 10).Return(articles, nil)
	s.store.EXPECT().ClaimStatus(ctx, int64(9),
		domain.StatusCurated, domain.StatusGeneratingAssets).Return(false, nil)

	stage := s.pipeline.Illustrate(ctx)

	s.NoError(stage.Err)
	s.Equal(1, stage.Skipped)
}

func (s *PipelineTestSuite) TestIllustrate_DisabledDoesNothing() {
	cfg := s.cfg
	cfg.ImagesEnabled = false
	pipe := s.newPipeline(cfg)

	stage := pipe.Illustrate(context.Background())

	s.NoError(stage.Err)
	s.Equal(0, stage.Processed)
}

func (s *PipelineTestSuite) TestRetrySweep_RegressesIncompleteAndParksExhausted() {
	ctx := context.Background()
	incomplete := []domain.Article{
		{ID: 1, Status: domain.StatusIllustrated, ImageRetryCount: 0},
		{ID: 2, Status: domain.StatusIllustrated, ImageRetryCount: 2},
	}

	s.store.EXPECT().FindIncompleteAssets(ctx, 3, 5).Return(incomplete, nil)
	s.store.EXPECT().MarkForAssetRetry(ctx, int64(1)).Return(true, nil)
	s.store.EXPECT().MarkForAssetRetry(ctx, int64(2)).Return(true, nil)
	s.store.EXPECT().ParkExhausted(ctx, 3).Return(1, nil)

	stage := s.pipeline.RetrySweep(ctx)

	s.NoError(stage.Err)
	s.Equal(2, stage.Retried)
	s.Equal(1, stage.Failed)
}
