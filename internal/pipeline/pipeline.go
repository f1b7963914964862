package pipeline

import (
	"context"
	"log/slog"
	"time"

	"newsroom/internal/config"
	"newsroom/internal/domain"
)

// Config carries the per-stage knobs the pipeline needs.
type Config struct {
	CurationBatch     int
	IllustrationBatch int
	DispatchBatch     int
	SweepBatch        int
	RetryCeiling      int

	ImagesEnabled bool
	OutputDir     string
	WebsiteImage  config.ImageDimensions
	TelegramImage config.ImageDimensions
	PortraitImage config.ImageDimensions

	TelegramEnabled bool
	ChannelID       string
	WebsiteURL      string
}

// FetchSource pairs a headline source with its per-cycle fetch limit.
type FetchSource struct {
	Source Source
	Limit  int
}

// Pipeline runs one article through ingest, curation, illustration and
// dispatch. All progress lives in the store as status transitions, so a
// pipeline instance is stateless and a crashed cycle resumes naturally on
// the next one.
type Pipeline struct {
	sources     []FetchSource
	extractor   ContentExtractor
	store       ItemStore
	subscribers SubscriberStore
	curator     Curator
	prompts     PromptWriter
	images      ImageGenerator
	messenger   Messenger
	events      EventPublisher
	config      Config
	logger      *slog.Logger
}

func New(
	sources []FetchSource,
	extractor ContentExtractor,
	store ItemStore,
	subscribers SubscriberStore,
	curator Curator,
	prompts PromptWriter,
	images ImageGenerator,
	messenger Messenger,
	events EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		sources:     sources,
		extractor:   extractor,
		store:       store,
		subscribers: subscribers,
		curator:     curator,
		prompts:     prompts,
		images:      images,
		messenger:   messenger,
		events:      events,
		config:      cfg,
		logger:      logger.With("component", "pipeline"),
	}
}

// RunCycle executes the stages in fixed order. A failing stage is recorded
// and the cycle moves on: each stage reads its own input set from the store,
// so a broken LLM never blocks dispatch of already-illustrated articles. The
// retry sweep runs directly after illustration so an incomplete asset set is
// regressed before dispatch can select it; only ceiling-exhausted articles
// ever go out incomplete.
func (p *Pipeline) RunCycle(ctx context.Context) *domain.CycleStats {
	stats := &domain.CycleStats{
		StartedAt: time.Now(),
		Success:   true,
	}

	stages := []func(context.Context) domain.StageResult{
		p.Ingest,
		p.Curate,
		p.Illustrate,
		p.RetrySweep,
		p.Dispatch,
	}

	for _, stage := range stages {
		result := stage(ctx)
		stats.Stages = append(stats.Stages, result)
		if result.Err != nil {
			stats.Success = false
			p.logger.Error("stage failed",
				"stage", result.Stage,
				"error", result.Err,
			)
		}
		if ctx.Err() != nil {
			stats.Success = false
			break
		}
	}

	stats.Duration = time.Since(stats.StartedAt)
	p.logger.Info("cycle completed",
		"duration", stats.Duration,
		"success", stats.Success,
	)
	return stats
}
