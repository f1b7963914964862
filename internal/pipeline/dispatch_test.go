package pipeline

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"newsroom/internal/domain"
)

func illustratedArticle(id int64, withPhoto bool) domain.Article {
	article := domain.Article{
		ID:     id,
		Title:  "Breaking story",
		Status: domain.StatusIllustrated,
		Platforms: &domain.PlatformContent{
			Telegram: domain.TelegramContent{Teaser: "🚀 Something happened."},
		},
	}
	if withPhoto {
		article.Assets = &domain.AssetSet{
			Telegram: &domain.Asset{Path: "/tmp/telegram.jpg", Width: 512, Height: 512},
		}
	}
	return article
}

func (s *PipelineTestSuite) TestDispatch_ChannelWithPhoto() {
	ctx := context.Background()
	articles := []domain.Article{illustratedArticle(42, true)}

	expectedText := "📰 *Breaking story*\n\n🚀 Something happened.\n\n🔗 [Read more](https://news.test/article/42)"

	s.store.EXPECT().FindForDispatch(ctx, 10).Return(articles, nil)
	s.messenger.EXPECT().
		SendPhoto(ctx, "@testchannel", "/tmp/telegram.jpg", expectedText).
		Return(nil)
	s.store.EXPECT().MarkDispatched(ctx, int64(42)).Return(true, nil)
	s.events.EXPECT().PublishDispatched(ctx, &articles[0], 1).Return(nil)

	stage := s.pipeline.Dispatch(ctx)

	s.NoError(stage.Err)
	s.Equal(1, stage.Processed)
	s.Equal(0, stage.Failed)
}

func (s *PipelineTestSuite) TestDispatch_PrefersCuratedHeadline() {
	ctx := context.Background()
	article := illustratedArticle(11, false)
	article.Platforms.Website.Title = "Rewritten headline"

	expectedText := "📰 *Rewritten headline*\n\n🚀 Something happened.\n\n🔗 [Read more](https://news.test/article/11)"

	s.store.EXPECT().FindForDispatch(ctx, 10).Return([]domain.Article{article}, nil)
	s.messenger.EXPECT().
		SendMessage(ctx, "@testchannel", expectedText).
		Return(nil)
	s.store.EXPECT().MarkDispatched(ctx, int64(11)).Return(true, nil)
	s.events.EXPECT().PublishDispatched(ctx, gomock.Any(), 1).Return(nil)

	stage := s.pipeline.Dispatch(ctx)

	s.Equal(1, stage.Processed)
}

func (s *PipelineTestSuite) TestDispatch_TextFallbackWithoutSquareRender() {
	ctx := context.Background()
	articles := []domain.Article{illustratedArticle(8, false)}

	s.store.EXPECT().FindForDispatch(ctx, 10).Return(articles, nil)
	s.messenger.EXPECT().
		SendMessage(ctx, "@testchannel", gomock.Any()).
		Return(nil)
	s.store.EXPECT().MarkDispatched(ctx, int64(8)).Return(true, nil)
	s.events.EXPECT().PublishDispatched(ctx, &articles[0], 1).Return(nil)

	stage := s.pipeline.Dispatch(ctx)

	s.Equal(1, stage.Processed)
}

func (s *PipelineTestSuite) TestDispatch_SubscriberFanout() {
	ctx := context.Background()

	cfg := s.cfg
	cfg.ChannelID = ""
	pipe := s.newPipeline(cfg)

	articles := []domain.Article{illustratedArticle(5, false)}
	subs := []domain.Subscriber{
		{ChatID: 1001, Active: true},
		{ChatID: 1002, Active: true},
	}

	s.store.EXPECT().FindForDispatch(ctx, 10).Return(articles, nil)
	s.subscribers.EXPECT().Active(ctx).Return(subs, nil)
	s.messenger.EXPECT().SendMessage(ctx, "1001", gomock.Any()).Return(nil)
	s.messenger.EXPECT().SendMessage(ctx, "1002", gomock.Any()).Return(nil)
	s.store.EXPECT().MarkDispatched(ctx, int64(5)).Return(true, nil)
	s.events.EXPECT().PublishDispatched(ctx, &articles[0], 2).Return(nil)

	stage := pipe.Dispatch(ctx)

	s.Equal(1, stage.Processed)
}

func (s *PipelineTestSuite) TestDispatch_MissingTeaserLeavesArticleUnmarked() {
	ctx := context.Background()
	article := illustratedArticle(3, false)
	article.Platforms = nil

	s.store.EXPECT().FindForDispatch(ctx, 10).Return([]domain.Article{article}, nil)

	stage := s.pipeline.Dispatch(ctx)

	s.Equal(0, stage.Processed)
	s.Equal(1, stage.Skipped)
}

func (s *PipelineTestSuite) TestDispatch_DeliveryFailureStillMarksDispatched() {
	ctx := context.Background()
	articles := []domain.Article{illustratedArticle(6, false)}

	s.store.EXPECT().FindForDispatch(ctx, 10).Return(articles, nil)
	s.messenger.EXPECT().
		SendMessage(ctx, "@testchannel", gomock.Any()).
		Return(errors.New("telegram 502"))
	s.store.EXPECT().MarkDispatched(ctx, int64(6)).Return(true, nil)
	s.events.EXPECT().PublishDispatched(ctx, &articles[0], 0).Return(nil)

	stage := s.pipeline.Dispatch(ctx)

	s.Equal(1, stage.Processed)
	s.Equal(1, stage.Failed)
}

func (s *PipelineTestSuite) TestDispatch_DisabledDoesNothing() {
	cfg := s.cfg
	cfg.TelegramEnabled = false
	pipe := s.newPipeline(cfg)

	stage := pipe.Dispatch(context.Background())

	s.NoError(stage.Err)
	s.Equal(0, stage.Processed)
}
