package domain

import "time"

// Status tracks an article's position in the enrichment pipeline. Transitions
// move strictly forward except for the illustration retry path, which regresses
// an incompletely illustrated article back to StatusCurated.
type Status string

const (
	StatusRaw              Status = "raw"
	StatusCurated          Status = "curated"
	StatusGeneratingAssets Status = "generating_assets"
	StatusIllustrated      Status = "illustrated"
	StatusDispatched       Status = "dispatched"
	StatusParked           Status = "parked_max_retries"
)

// Statuses lists every valid status in forward pipeline order, with the
// terminal parked state last.
var Statuses = []Status{
	StatusRaw,
	StatusCurated,
	StatusGeneratingAssets,
	StatusIllustrated,
	StatusDispatched,
	StatusParked,
}

// Article is one ingested news record. The origin URL is unique across the
// store; stage payloads accumulate as the article moves forward.
type Article struct {
	ID          int64
	Source      string // publisher name, e.g. "BBC News"
	APISource   string // which aggregator delivered it, e.g. "NewsAPI"
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt time.Time
	Content     string

	Status          Status
	Curated         *CuratedContent
	Platforms       *PlatformContent
	Assets          *AssetSet
	AssetPrompts    []string
	ImageRetryCount int

	Broadcast   bool
	BroadcastAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CuratedContent is the LLM-produced rewrite of a raw article.
type CuratedContent struct {
	Summary          string   `json:"summary"`
	RewrittenContent string   `json:"rewritten_content"`
	Entities         Entities `json:"entities"`
	Hashtags         []string `json:"hashtags"`
}

type Entities struct {
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Locations     []string `json:"locations"`
}

// PlatformContent carries the per-platform content blocks produced during
// curation. All three blocks must be populated before the raw->curated
// transition commits.
type PlatformContent struct {
	Website   WebsiteContent   `json:"website"`
	Telegram  TelegramContent  `json:"telegram"`
	Instagram InstagramContent `json:"instagram"`
}

type WebsiteContent struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Paragraphs []string `json:"paragraphs"`
}

type TelegramContent struct {
	Teaser string `json:"teaser"`
}

type InstagramContent struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

// Complete reports whether every required curation field is populated.
func (c *CuratedContent) Complete() bool {
	return c != nil && c.Summary != "" && c.RewrittenContent != ""
}

// Complete reports whether all three platform blocks are populated.
func (p *PlatformContent) Complete() bool {
	return p != nil &&
		p.Website.Title != "" && len(p.Website.Paragraphs) >= 3 &&
		p.Telegram.Teaser != "" &&
		p.Instagram.Caption != ""
}

// Asset is one generated image reference.
type Asset struct {
	Path   string `json:"path"`
	Prompt string `json:"prompt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AssetSet is the group of generated images an article needs: one wide website
// image, one square telegram image, and an instagram gallery of three. The
// first two gallery entries reuse the website and telegram files rather than
// being generated separately.
type AssetSet struct {
	Website   *Asset  `json:"website"`
	Telegram  *Asset  `json:"telegram"`
	Instagram []Asset `json:"instagram"`
}

// Complete reports whether every slot holds an asset reference.
func (a *AssetSet) Complete() bool {
	return a != nil && a.Website != nil && a.Telegram != nil && len(a.Instagram) >= 3
}

// SlotCount returns how many of the five slots are filled.
func (a *AssetSet) SlotCount() int {
	if a == nil {
		return 0
	}
	n := len(a.Instagram)
	if a.Website != nil {
		n++
	}
	if a.Telegram != nil {
		n++
	}
	return n
}
