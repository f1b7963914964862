//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"newsroom/internal/domain"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_articles.up.sql"),
			filepath.Join(migrationsPath, "002_create_subscribers.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM articles")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM subscribers")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertArticle(url string) *domain.Article {
	store := NewArticleStore(s.db)
	article := &domain.Article{
		Source:      "Test Outlet",
		APISource:   "NewsAPI",
		Title:       "Test Article",
		URL:         url,
		Content:     "scraped body",
		PublishedAt: time.Now(),
	}
	res, err := store.Insert(s.ctx, article)
	s.Require().NoError(err)
	s.Require().Equal(Inserted, res)
	return article
}

func (s *PostgresIntegrationSuite) TestArticleStore_Insert_DuplicateURL() {
	store := NewArticleStore(s.db)
	s.insertArticle("https://example.com/a")

	res, err := store.Insert(s.ctx, &domain.Article{
		Source: "Other Outlet",
		Title:  "Same Story",
		URL:    "https://example.com/a",
	})
	s.NoError(err)
	s.Equal(Duplicate, res)

	counts, err := store.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(1, counts[domain.StatusRaw])
}

func (s *PostgresIntegrationSuite) TestArticleStore_ClaimStatus_OnlyOneWinner() {
	store := NewArticleStore(s.db)
	article := s.insertArticle("https://example.com/claim")

	claimed, err := store.ClaimStatus(s.ctx, article.ID, domain.StatusRaw, domain.StatusCurated)
	s.NoError(err)
	s.True(claimed)

	claimed, err = store.ClaimStatus(s.ctx, article.ID, domain.StatusRaw, domain.StatusCurated)
	s.NoError(err)
	s.False(claimed)
}

func (s *PostgresIntegrationSuite) TestArticleStore_TransitionWritesSurviveCancellation() {
	store := NewArticleStore(s.db)
	article := s.insertArticle("https://example.com/shutdown")

	// A shutdown signal cancels the cycle context, but a transition write
	// that has been issued must still land.
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	claimed, err := store.ClaimStatus(ctx, article.ID, domain.StatusRaw, domain.StatusCurated)
	s.NoError(err)
	s.True(claimed)

	counts, err := store.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(1, counts[domain.StatusCurated])
}

func (s *PostgresIntegrationSuite) TestArticleStore_SaveCurated_RoundTrip() {
	store := NewArticleStore(s.db)
	article := s.insertArticle("https://example.com/curate")

	curated := &domain.CuratedContent{
		Summary:          "summary",
		RewrittenContent: "rewritten",
		Entities:         domain.Entities{People: []string{"Jane Doe"}},
		Hashtags:         []string{"#Tech"},
	}
	platforms := &domain.PlatformContent{
		Website:  domain.WebsiteContent{Title: "headline", Paragraphs: []string{"a", "b", "c"}},
		Telegram: domain.TelegramContent{Teaser: "teaser"},
	}

	saved, err := store.SaveCurated(s.ctx, article.ID, curated, platforms)
	s.NoError(err)
	s.True(saved)

	// Conditional on raw, so a second save is a no-op.
	saved, err = store.SaveCurated(s.ctx, article.ID, curated, platforms)
	s.NoError(err)
	s.False(saved)

	found, err := store.FindByStatus(s.ctx, domain.StatusCurated, 10)
	s.NoError(err)
	s.Require().Len(found, 1)
	s.Require().NotNil(found[0].Curated)
	s.Equal("summary", found[0].Curated.Summary)
	s.Equal([]string{"Jane Doe"}, found[0].Curated.Entities.People)
	s.Require().NotNil(found[0].Platforms)
	s.Equal("teaser", found[0].Platforms.Telegram.Teaser)
}

func (s *PostgresIntegrationSuite) curateAndClaim(url string) *domain.Article {
	store := NewArticleStore(s.db)
	article := s.insertArticle(url)

	saved, err := store.SaveCurated(s.ctx, article.ID,
		&domain.CuratedContent{Summary: "s", RewrittenContent: "r"},
		&domain.PlatformContent{Telegram: domain.TelegramContent{Teaser: "t"}})
	s.Require().NoError(err)
	s.Require().True(saved)

	claimed, err := store.ClaimStatus(s.ctx, article.ID,
		domain.StatusCurated, domain.StatusGeneratingAssets)
	s.Require().NoError(err)
	s.Require().True(claimed)
	return article
}

func (s *PostgresIntegrationSuite) TestArticleStore_SaveAssets_SetsProcessedAt() {
	store := NewArticleStore(s.db)
	article := s.curateAndClaim("https://example.com/assets")

	asset := domain.Asset{Path: "/tmp/w.jpg", Width: 1280, Height: 720}
	assets := &domain.AssetSet{
		Website:   &asset,
		Telegram:  &asset,
		Instagram: []domain.Asset{asset, asset, asset},
	}

	saved, err := store.SaveAssets(s.ctx, article.ID, assets, []string{"p1", "p2", "p3"})
	s.NoError(err)
	s.True(saved)

	found, err := store.FindByStatus(s.ctx, domain.StatusIllustrated, 10)
	s.NoError(err)
	s.Require().Len(found, 1)
	s.NotNil(found[0].ProcessedAt)
	s.Require().NotNil(found[0].Assets)
	s.True(found[0].Assets.Complete())
	s.Equal([]string{"p1", "p2", "p3"}, found[0].AssetPrompts)
}

func (s *PostgresIntegrationSuite) TestArticleStore_IncompleteAssetsLifecycle() {
	store := NewArticleStore(s.db)
	article := s.curateAndClaim("https://example.com/partial")

	asset := domain.Asset{Path: "/tmp/w.jpg"}
	partial := &domain.AssetSet{
		Website:   &asset,
		Instagram: []domain.Asset{asset},
	}
	saved, err := store.SaveAssets(s.ctx, article.ID, partial, []string{"p1"})
	s.Require().NoError(err)
	s.Require().True(saved)

	incomplete, err := store.FindIncompleteAssets(s.ctx, 3, 5)
	s.NoError(err)
	s.Require().Len(incomplete, 1)
	s.Equal(article.ID, incomplete[0].ID)

	marked, err := store.MarkForAssetRetry(s.ctx, article.ID)
	s.NoError(err)
	s.True(marked)

	// Back at curated with the stale assets cleared and the count bumped.
	curated, err := store.FindForIllustration(s.ctx, 3, 10)
	s.NoError(err)
	s.Require().Len(curated, 1)
	s.Equal(1, curated[0].ImageRetryCount)
	s.Nil(curated[0].Assets)
}

func (s *PostgresIntegrationSuite) TestArticleStore_ExhaustedArticlesAreInvisibleThenParked() {
	store := NewArticleStore(s.db)
	article := s.insertArticle("https://example.com/exhausted")

	saved, err := store.SaveCurated(s.ctx, article.ID,
		&domain.CuratedContent{Summary: "s", RewrittenContent: "r"},
		&domain.PlatformContent{})
	s.Require().NoError(err)
	s.Require().True(saved)

	_, err = s.db.ExecContext(s.ctx,
		"UPDATE articles SET image_retry_count = 3 WHERE id = $1", article.ID)
	s.Require().NoError(err)

	// At the ceiling the article is never offered for illustration again.
	curated, err := store.FindForIllustration(s.ctx, 3, 10)
	s.NoError(err)
	s.Empty(curated)

	parked, err := store.ParkExhausted(s.ctx, 3)
	s.NoError(err)
	s.Equal(1, parked)

	counts, err := store.CountByStatus(s.ctx)
	s.NoError(err)
	s.Equal(1, counts[domain.StatusParked])
}

func (s *PostgresIntegrationSuite) TestArticleStore_DispatchIsAtMostOnce() {
	store := NewArticleStore(s.db)
	article := s.curateAndClaim("https://example.com/dispatch")

	asset := domain.Asset{Path: "/tmp/t.jpg"}
	saved, err := store.SaveAssets(s.ctx, article.ID,
		&domain.AssetSet{Website: &asset, Telegram: &asset, Instagram: []domain.Asset{asset, asset, asset}},
		nil)
	s.Require().NoError(err)
	s.Require().True(saved)

	pending, err := store.FindForDispatch(s.ctx, 10)
	s.NoError(err)
	s.Require().Len(pending, 1)

	marked, err := store.MarkDispatched(s.ctx, article.ID)
	s.NoError(err)
	s.True(marked)

	marked, err = store.MarkDispatched(s.ctx, article.ID)
	s.NoError(err)
	s.False(marked)

	pending, err = store.FindForDispatch(s.ctx, 10)
	s.NoError(err)
	s.Empty(pending)
}

func (s *PostgresIntegrationSuite) TestSubscriberStore_AddRemoveActive() {
	store := NewSubscriberStore(s.db)

	added, err := store.Add(s.ctx, 1001, "alice")
	s.NoError(err)
	s.True(added)

	// Re-adding an active subscriber is a no-op.
	added, err = store.Add(s.ctx, 1001, "alice")
	s.NoError(err)
	s.False(added)

	_, err = store.Add(s.ctx, 1002, "bob")
	s.NoError(err)

	active, err := store.Active(s.ctx)
	s.NoError(err)
	s.Len(active, 2)

	removed, err := store.Remove(s.ctx, 1001)
	s.NoError(err)
	s.True(removed)

	count, err := store.Count(s.ctx)
	s.NoError(err)
	s.Equal(1, count)
}
