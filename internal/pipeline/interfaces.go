package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"newsroom/internal/curation"
	"newsroom/internal/domain"
	"newsroom/internal/storage/postgres"
)

type ItemStore interface {
	Insert(ctx context.Context, article *domain.Article) (postgres.InsertResult, error)
	FindByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Article, error)
	FindForIllustration(ctx context.Context, maxRetries, limit int) ([]domain.Article, error)
	ClaimStatus(ctx context.Context, id int64, expected, next domain.Status) (bool, error)
	SaveCurated(ctx context.Context, id int64, curated *domain.CuratedContent, platforms *domain.PlatformContent) (bool, error)
	SaveAssets(ctx context.Context, id int64, assets *domain.AssetSet, prompts []string) (bool, error)
	FindIncompleteAssets(ctx context.Context, maxRetries, limit int) ([]domain.Article, error)
	MarkForAssetRetry(ctx context.Context, id int64) (bool, error)
	ParkExhausted(ctx context.Context, maxRetries int) (int, error)
	FindForDispatch(ctx context.Context, limit int) ([]domain.Article, error)
	MarkDispatched(ctx context.Context, id int64) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

type SubscriberStore interface {
	Active(ctx context.Context) ([]domain.Subscriber, error)
}

type Source interface {
	ID() string
	Fetch(ctx context.Context, limit int) ([]domain.Article, error)
}

type ContentExtractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

type Curator interface {
	Curate(ctx context.Context, article *domain.Article) (*curation.Result, error)
}

type PromptWriter interface {
	WritePrompts(ctx context.Context, title, summary string) ([]string, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height int, seed int64, outputPath string) error
}

type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID, photoPath, caption string) error
}

type EventPublisher interface {
	PublishDispatched(ctx context.Context, article *domain.Article, recipients int) error
	Close() error
}
