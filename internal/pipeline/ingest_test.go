package pipeline

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"newsroom/internal/domain"
	"newsroom/internal/storage/postgres"
)

func (s *PipelineTestSuite) TestIngest_NewArticles() {
	ctx := context.Background()

	s.sourceA.EXPECT().Fetch(ctx, 3).Return([]domain.Article{
		{Source: "Alpha Times", APISource: "NewsAPI", Title: "A1", URL: "https://alpha.test/1"},
		{Source: "Beta Post", APISource: "NewsAPI", Title: "B1", URL: "https://beta.test/1"},
	}, nil)
	s.sourceB.EXPECT().Fetch(ctx, 2).Return([]domain.Article{
		{Source: "Gamma Daily", APISource: "GNews", Title: "G1", URL: "https://gamma.test/1"},
	}, nil)

	s.extractor.EXPECT().Extract(ctx, gomock.Any()).
		Return("a sufficiently long scraped article body", nil).Times(3)
	s.store.EXPECT().Insert(ctx, gomock.Any()).
		Return(postgres.Inserted, nil).Times(3)

	result := s.pipeline.Ingest(ctx)

	s.NoError(result.Err)
	s.Equal(3, result.Processed)
	s.Equal(0, result.Skipped)
	s.Equal(0, result.Failed)
}

func (s *PipelineTestSuite) TestIngest_DuplicateURL() {
	ctx := context.Background()

	s.sourceA.EXPECT().Fetch(ctx, 3).Return([]domain.Article{
		{Source: "Alpha Times", Title: "A1", URL: "https://alpha.test/1"},
	}, nil)
	s.sourceB.EXPECT().Fetch(ctx, 2).Return(nil, nil)

	s.extractor.EXPECT().Extract(ctx, "https://alpha.test/1").
		Return("scraped body text", nil)
	s.store.EXPECT().Insert(ctx, gomock.Any()).Return(postgres.Duplicate, nil)

	result := s.pipeline.Ingest(ctx)

	s.NoError(result.Err)
	s.Equal(0, result.Processed)
	s.Equal(1, result.Skipped)
}

func (s *PipelineTestSuite) TestIngest_SourceFailureDoesNotStarveOthers() {
	ctx := context.Background()

	s.sourceA.EXPECT().Fetch(ctx, 3).Return(nil, errors.New("newsapi 500"))
	s.sourceA.EXPECT().ID().Return("NewsAPI")
	s.sourceB.EXPECT().Fetch(ctx, 2).Return([]domain.Article{
		{Source: "Gamma Daily", Title: "G1", URL: "https://gamma.test/1"},
	}, nil)

	s.extractor.EXPECT().Extract(ctx, "https://gamma.test/1").
		Return("scraped body text", nil)
	s.store.EXPECT().Insert(ctx, gomock.Any()).Return(postgres.Inserted, nil)

	result := s.pipeline.Ingest(ctx)

	s.NoError(result.Err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Failed)
}

func (s *PipelineTestSuite) TestIngest_ExtractionFailureSkipsArticle() {
	ctx := context.Background()

	s.sourceA.EXPECT().Fetch(ctx, 3).Return([]domain.Article{
		{Source: "Alpha Times", Title: "A1", URL: "https://alpha.test/paywalled"},
	}, nil)
	s.sourceB.EXPECT().Fetch(ctx, 2).Return(nil, nil)

	s.extractor.EXPECT().Extract(ctx, "https://alpha.test/paywalled").
		Return("", errors.New("insufficient content"))

	result := s.pipeline.Ingest(ctx)

	s.NoError(result.Err)
	s.Equal(0, result.Processed)
	s.Equal(1, result.Failed)
}

func (s *PipelineTestSuite) TestSelectDiverse_RoundRobinAcrossOutlets() {
	articles := []domain.Article{
		{Source: "Alpha", URL: "https://a/1"},
		{Source: "Alpha", URL: "https://a/2"},
		{Source: "Alpha", URL: "https://a/3"},
		{Source: "Beta", URL: "https://b/1"},
		{Source: "Beta", URL: "https://b/2"},
	}

	selected := selectDiverse(articles, 4)

	s.Len(selected, 4)
	s.Equal("https://a/1", selected[0].URL)
	s.Equal("https://b/1", selected[1].URL)
	s.Equal("https://a/2", selected[2].URL)
	s.Equal("https://b/2", selected[3].URL)
}

func (s *PipelineTestSuite) TestSelectDiverse_DedupesByURL() {
	articles := []domain.Article{
		{Source: "Alpha", URL: "https://a/1"},
		{Source: "Beta", URL: "https://a/1"},
		{Source: "Beta", URL: "https://b/1"},
	}

	selected := selectDiverse(articles, 10)

	s.Len(selected, 2)
}
