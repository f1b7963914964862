package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"newsroom/internal/domain"
)

// InsertResult distinguishes a fresh insert from a duplicate origin URL.
type InsertResult int

const (
	Inserted InsertResult = iota
	Duplicate
)

const uniqueViolation = "23505"

const articleColumns = `
	id, source, api_source, title, description, url, image_url, published_at,
	content, status, curated, platforms, assets, asset_prompts,
	image_retry_count, broadcast, broadcast_at, processed_at, created_at, updated_at`

// ArticleStore is the Postgres adapter for the article pipeline. Every status
// transition is a single conditional UPDATE matching on the expected current
// status, so overlapping pipeline runs can never both claim the same article.
// Transition writes run on a non-cancellable context: once a status UPDATE is
// issued it completes even when the cycle is shut down mid-flight, so an
// article is never left half-transitioned by a signal.
type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Insert stores a new raw article. A second article with the same origin URL
// reports Duplicate and leaves the store unchanged.
func (s *ArticleStore) Insert(ctx context.Context, article *domain.Article) (InsertResult, error) {
	query := `
		INSERT INTO articles (
			source, api_source, title, description, url, image_url,
			published_at, content, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var publishedAt *time.Time
	if !article.PublishedAt.IsZero() {
		publishedAt = &article.PublishedAt
	}

	err := s.db.QueryRowContext(ctx, query,
		article.Source,
		article.APISource,
		article.Title,
		article.Description,
		article.URL,
		article.ImageURL,
		publishedAt,
		article.Content,
		domain.StatusRaw,
	).Scan(&article.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return Duplicate, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return Inserted, nil
}

// FindByStatus returns up to limit articles in the given status, oldest first.
func (s *ArticleStore) FindByStatus(ctx context.Context, status domain.Status, limit int) ([]domain.Article, error) {
	query := `SELECT` + articleColumns + `
		FROM articles WHERE status = $1 ORDER BY created_at LIMIT $2`

	return s.queryArticles(ctx, query, status, limit)
}

// FindForIllustration selects curated articles still under the retry ceiling.
// Articles at or over the ceiling are parked: visible in the store but never
// picked up again.
func (s *ArticleStore) FindForIllustration(ctx context.Context, maxRetries, limit int) ([]domain.Article, error) {
	query := `SELECT` + articleColumns + `
		FROM articles
		WHERE status = $1 AND image_retry_count < $2
		ORDER BY created_at LIMIT $3`

	return s.queryArticles(ctx, query, domain.StatusCurated, maxRetries, limit)
}

// ClaimStatus performs the atomic conditional transition that makes stage
// claims safe under concurrent runs: the status moves expected -> next in one
// statement, and false means another executor got there first.
func (s *ArticleStore) ClaimStatus(ctx context.Context, id int64, expected, next domain.Status) (bool, error) {
	res, err := s.db.ExecContext(context.WithoutCancel(ctx),
		`UPDATE articles SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, expected, next,
	)
	if err != nil {
		return false, fmt.Errorf("claim status: %w", err)
	}
	return rowsChanged(res)
}

// SaveCurated commits the full curation payload and the raw -> curated
// transition together. The write is conditional on the article still being
// raw; a partial curation never reaches the store.
func (s *ArticleStore) SaveCurated(ctx context.Context, id int64, curated *domain.CuratedContent, platforms *domain.PlatformContent) (bool, error) {
	curatedJSON, err := json.Marshal(curated)
	if err != nil {
		return false, fmt.Errorf("marshal curated: %w", err)
	}
	platformsJSON, err := json.Marshal(platforms)
	if err != nil {
		return false, fmt.Errorf("marshal platforms: %w", err)
	}

	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE articles
		SET status = $2, curated = $3, platforms = $4, updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, domain.StatusCurated, curatedJSON, platformsJSON, domain.StatusRaw,
	)
	if err != nil {
		return false, fmt.Errorf("save curated: %w", err)
	}
	return rowsChanged(res)
}

// SaveAssets commits the generating_assets -> illustrated transition with
// whatever assets the attempt produced. Completeness is judged later by the
// retry sweep, not here.
func (s *ArticleStore) SaveAssets(ctx context.Context, id int64, assets *domain.AssetSet, prompts []string) (bool, error) {
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return false, fmt.Errorf("marshal assets: %w", err)
	}
	promptsJSON, err := json.Marshal(prompts)
	if err != nil {
		return false, fmt.Errorf("marshal prompts: %w", err)
	}

	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE articles
		SET status = $2, assets = $3, asset_prompts = $4,
		    processed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, domain.StatusIllustrated, assetsJSON, promptsJSON, domain.StatusGeneratingAssets,
	)
	if err != nil {
		return false, fmt.Errorf("save assets: %w", err)
	}
	return rowsChanged(res)
}

// FindIncompleteAssets returns illustrated articles whose asset set is missing
// at least one slot AND whose retry count is under the ceiling. The two
// predicates are an explicit conjunction: an exhausted article is never
// returned no matter how incomplete it is.
func (s *ArticleStore) FindIncompleteAssets(ctx context.Context, maxRetries, limit int) ([]domain.Article, error) {
	query := `SELECT` + articleColumns + `
		FROM articles
		WHERE status = $1
		  AND assets IS NOT NULL
		  AND (assets->'website' = 'null'::jsonb
		       OR assets->'telegram' = 'null'::jsonb
		       OR COALESCE(jsonb_array_length(NULLIF(assets->'instagram', 'null'::jsonb)), 0) < 3)
		  AND image_retry_count < $2
		ORDER BY created_at LIMIT $3`

	return s.queryArticles(ctx, query, domain.StatusIllustrated, maxRetries, limit)
}

// MarkForAssetRetry regresses an illustrated article to curated for another
// illustration pass: increments the retry count and clears the stale asset
// fields in the same statement.
func (s *ArticleStore) MarkForAssetRetry(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE articles
		SET status = $2, image_retry_count = image_retry_count + 1,
		    assets = NULL, asset_prompts = NULL, updated_at = now()
		WHERE id = $1 AND status = $3`,
		id, domain.StatusCurated, domain.StatusIllustrated,
	)
	if err != nil {
		return false, fmt.Errorf("mark for retry: %w", err)
	}
	return rowsChanged(res)
}

// ParkExhausted moves articles that burned through the retry ceiling into the
// terminal parked status. An exhausted article always sits at curated: the
// retry that pushed its count to the ceiling also regressed it there. Returns
// how many were parked.
func (s *ArticleStore) ParkExhausted(ctx context.Context, maxRetries int) (int, error) {
	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE articles
		SET status = $1, updated_at = now()
		WHERE status = $2 AND image_retry_count >= $3`,
		domain.StatusParked, domain.StatusCurated, maxRetries,
	)
	if err != nil {
		return 0, fmt.Errorf("park exhausted: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// FindForDispatch returns illustrated articles with no broadcast marker,
// newest first.
func (s *ArticleStore) FindForDispatch(ctx context.Context, limit int) ([]domain.Article, error) {
	query := `SELECT` + articleColumns + `
		FROM articles
		WHERE status = $1 AND broadcast = FALSE
		ORDER BY processed_at DESC NULLS LAST LIMIT $2`

	return s.queryArticles(ctx, query, domain.StatusIllustrated, limit)
}

// MarkDispatched sets the broadcast marker and the illustrated -> dispatched
// transition in one write. The marker is what guards at-most-once delivery:
// FindForDispatch never returns a marked article again, even across restarts.
func (s *ArticleStore) MarkDispatched(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE articles
		SET status = $2, broadcast = TRUE, broadcast_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3 AND broadcast = FALSE`,
		id, domain.StatusDispatched, domain.StatusIllustrated,
	)
	if err != nil {
		return false, fmt.Errorf("mark dispatched: %w", err)
	}
	return rowsChanged(res)
}

// CountByStatus returns the number of articles in each status.
func (s *ArticleStore) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM articles GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type articleRow struct {
	ID              int64          `db:"id"`
	Source          string         `db:"source"`
	APISource       string         `db:"api_source"`
	Title           string         `db:"title"`
	Description     string         `db:"description"`
	URL             string         `db:"url"`
	ImageURL        string         `db:"image_url"`
	PublishedAt     sql.NullTime   `db:"published_at"`
	Content         string         `db:"content"`
	Status          string         `db:"status"`
	Curated         []byte         `db:"curated"`
	Platforms       []byte         `db:"platforms"`
	Assets          []byte         `db:"assets"`
	AssetPrompts    []byte         `db:"asset_prompts"`
	ImageRetryCount int            `db:"image_retry_count"`
	Broadcast       bool           `db:"broadcast"`
	BroadcastAt     sql.NullTime   `db:"broadcast_at"`
	ProcessedAt     sql.NullTime   `db:"processed_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (s *ArticleStore) queryArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}

	articles := make([]domain.Article, 0, len(rows))
	for i := range rows {
		article, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (r *articleRow) toDomain() (domain.Article, error) {
	article := domain.Article{
		ID:              r.ID,
		Source:          r.Source,
		APISource:       r.APISource,
		Title:           r.Title,
		Description:     r.Description,
		URL:             r.URL,
		ImageURL:        r.ImageURL,
		Content:         r.Content,
		Status:          domain.Status(r.Status),
		ImageRetryCount: r.ImageRetryCount,
		Broadcast:       r.Broadcast,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.PublishedAt.Valid {
		article.PublishedAt = r.PublishedAt.Time
	}
	if r.BroadcastAt.Valid {
		t := r.BroadcastAt.Time
		article.BroadcastAt = &t
	}
	if r.ProcessedAt.Valid {
		t := r.ProcessedAt.Time
		article.ProcessedAt = &t
	}
	if err := unmarshalInto(r.Curated, &article.Curated); err != nil {
		return article, fmt.Errorf("decode curated: %w", err)
	}
	if err := unmarshalInto(r.Platforms, &article.Platforms); err != nil {
		return article, fmt.Errorf("decode platforms: %w", err)
	}
	if err := unmarshalInto(r.Assets, &article.Assets); err != nil {
		return article, fmt.Errorf("decode assets: %w", err)
	}
	if len(r.AssetPrompts) > 0 {
		if err := json.Unmarshal(r.AssetPrompts, &article.AssetPrompts); err != nil {
			return article, fmt.Errorf("decode prompts: %w", err)
		}
	}
	return article, nil
}

func unmarshalInto[T any](data []byte, dst **T) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
