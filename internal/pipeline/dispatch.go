package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"newsroom/internal/domain"
)

// Dispatch sends illustrated articles to Telegram. Delivery is at most once:
// the broadcast marker is set after the send loop whether or not every
// recipient got the message, so a flaky recipient never causes a re-send to
// everyone else.
func (p *Pipeline) Dispatch(ctx context.Context) domain.StageResult {
	start := time.Now()
	result := domain.StageResult{Stage: "dispatch"}

	if !p.config.TelegramEnabled {
		p.logger.Debug("dispatch disabled, skipping")
		return result
	}

	articles, err := p.store.FindForDispatch(ctx, p.config.DispatchBatch)
	if err != nil {
		result.Err = err
		return result
	}
	if len(articles) == 0 {
		return result
	}

	recipients, err := p.recipients(ctx)
	if err != nil {
		result.Err = err
		return result
	}
	if len(recipients) == 0 {
		p.logger.Warn("no dispatch recipients configured")
		result.Skipped = len(articles)
		return result
	}

	for i := range articles {
		article := &articles[i]

		text, ok := p.dispatchMessage(article)
		if !ok {
			// No teaser to send. Leave the article unmarked so a later
			// re-curation can still pick it up.
			p.logger.Warn("article has no telegram teaser, skipping",
				"article_id", article.ID,
			)
			result.Skipped++
			continue
		}

		sent := 0
		for _, chatID := range recipients {
			if err := p.deliver(ctx, chatID, article, text); err != nil {
				if ctx.Err() != nil {
					result.Err = ctx.Err()
					return result
				}
				p.logger.Warn("delivery failed",
					"article_id", article.ID,
					"chat_id", chatID,
					"error", err,
				)
				result.Failed++
				continue
			}
			sent++
		}

		marked, err := p.store.MarkDispatched(ctx, article.ID)
		if err != nil {
			result.Err = err
			return result
		}
		if !marked {
			p.logger.Warn("article already marked dispatched",
				"article_id", article.ID,
			)
			continue
		}
		result.Processed++

		if p.events != nil {
			if err := p.events.PublishDispatched(ctx, article, sent); err != nil {
				p.logger.Warn("dispatch event publish failed",
					"article_id", article.ID,
					"error", err,
				)
			}
		}
	}

	p.logger.Info("dispatch completed",
		"dispatched", result.Processed,
		"delivery_failures", result.Failed,
		"skipped", result.Skipped,
	)

	result.Duration = time.Since(start)
	return result
}

// recipients resolves the target chats: a configured channel wins, otherwise
// the active subscriber list is fanned out to.
func (p *Pipeline) recipients(ctx context.Context) ([]string, error) {
	if p.config.ChannelID != "" {
		return []string{p.config.ChannelID}, nil
	}

	subs, err := p.subscribers.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subscribers: %w", err)
	}
	chatIDs := make([]string, 0, len(subs))
	for _, sub := range subs {
		chatIDs = append(chatIDs, strconv.FormatInt(sub.ChatID, 10))
	}
	return chatIDs, nil
}

func (p *Pipeline) dispatchMessage(article *domain.Article) (string, bool) {
	if article.Platforms == nil || article.Platforms.Telegram.Teaser == "" {
		return "", false
	}
	title := article.Platforms.Website.Title
	if title == "" {
		title = article.Title
	}
	text := fmt.Sprintf("📰 *%s*\n\n%s\n\n🔗 [Read more](%s/article/%d)",
		title,
		article.Platforms.Telegram.Teaser,
		p.config.WebsiteURL,
		article.ID,
	)
	return text, true
}

// deliver sends the article as a photo post when the square render exists,
// falling back to a plain message.
func (p *Pipeline) deliver(ctx context.Context, chatID string, article *domain.Article, text string) error {
	if article.Assets != nil && article.Assets.Telegram != nil {
		return p.messenger.SendPhoto(ctx, chatID, article.Assets.Telegram.Path, text)
	}
	return p.messenger.SendMessage(ctx, chatID, text)
}
