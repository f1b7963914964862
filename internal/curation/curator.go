package curation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"newsroom/internal/domain"
)

const maxContentChars = 7000

// ChatCompleter is the LLM call the curator depends on.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Result is the full curation payload for one article. Both halves must be
// complete before the raw -> curated transition may commit.
type Result struct {
	Curated   domain.CuratedContent
	Platforms domain.PlatformContent
}

// Curator turns a raw article into summary, rewrite, entities, hashtags and
// the three platform content blocks. LLM transport failures surface as errors
// (the article stays raw for the next cycle); malformed reply *content* is
// absorbed by deterministic fallbacks so free-form text never leaks upward.
type Curator struct {
	llm    ChatCompleter
	logger *slog.Logger
}

func NewCurator(llm ChatCompleter, logger *slog.Logger) *Curator {
	return &Curator{llm: llm, logger: logger.With("component", "curator")}
}

func (c *Curator) Curate(ctx context.Context, article *domain.Article) (*Result, error) {
	content := article.Content
	if content == "" {
		return nil, fmt.Errorf("article %d has no content", article.ID)
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	summary, rewritten, err := c.summarizeAndRewrite(ctx, article.Title, content)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	entities, err := c.extractEntities(ctx, rewritten)
	if err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	hashtags, err := c.generateHashtags(ctx, summary, entities)
	if err != nil {
		return nil, fmt.Errorf("generate hashtags: %w", err)
	}

	website, err := c.generateWebsite(ctx, article.Title, summary, rewritten)
	if err != nil {
		return nil, fmt.Errorf("website content: %w", err)
	}

	teaser, err := c.generateTeaser(ctx, article.Title, summary)
	if err != nil {
		return nil, fmt.Errorf("telegram content: %w", err)
	}

	caption, err := c.generateCaption(ctx, article.Title, summary)
	if err != nil {
		return nil, fmt.Errorf("instagram content: %w", err)
	}

	return &Result{
		Curated: domain.CuratedContent{
			Summary:          summary,
			RewrittenContent: rewritten,
			Entities:         entities,
			Hashtags:         hashtags,
		},
		Platforms: domain.PlatformContent{
			Website:   website,
			Telegram:  domain.TelegramContent{Teaser: teaser},
			Instagram: domain.InstagramContent{Caption: caption, Hashtags: hashtags},
		},
	}, nil
}

func (c *Curator) summarizeAndRewrite(ctx context.Context, title, content string) (string, string, error) {
	system := "You are a professional news editor. Summarize the article in 2-3 sentences, " +
		"then rewrite the main content in a fresh, original way while keeping every fact accurate."

	prompt := fmt.Sprintf(`Article Title: %s

Article Content:
%s

Format your response exactly as:
SUMMARY:
[your summary here]

REWRITTEN:
[your rewritten content here]`, title, content)

	response, err := c.llm.Complete(ctx, system, prompt, 0)
	if err != nil {
		return "", "", err
	}

	summary, rewritten, ok := parseSummaryRewritten(response)
	if !ok {
		c.logger.Warn("malformed summarize reply, using raw response", "title", truncate(title, 50))
	}
	return summary, rewritten, nil
}

func (c *Curator) extractEntities(ctx context.Context, text string) (domain.Entities, error) {
	if text == "" {
		return domain.Entities{}, nil
	}

	prompt := fmt.Sprintf(`Extract the following entities from this text:

Text: %s

Provide your response in this exact format:
PEOPLE: [comma-separated names, or "none"]
ORGANIZATIONS: [comma-separated names, or "none"]
LOCATIONS: [comma-separated names, or "none"]`, truncate(text, 2000))

	response, err := c.llm.Complete(ctx,
		"You are an entity extraction expert. Extract named entities from news articles.",
		prompt, 500)
	if err != nil {
		return domain.Entities{}, err
	}

	return parseEntities(response), nil
}

func (c *Curator) generateHashtags(ctx context.Context, summary string, entities domain.Entities) ([]string, error) {
	if summary == "" {
		return nil, nil
	}

	var hints []string
	for _, group := range [][]string{entities.People, entities.Organizations, entities.Locations} {
		if len(group) > 3 {
			group = group[:3]
		}
		hints = append(hints, group...)
	}
	hintText := "N/A"
	if len(hints) > 0 {
		hintText = strings.Join(hints, ", ")
	}

	prompt := fmt.Sprintf(`Generate 5-8 relevant hashtags for this news article.

Article summary: %s
Key entities: %s

Start each hashtag with #, use CamelCase for multi-word tags.
Provide hashtags as a comma-separated list:`, truncate(summary, 500), hintText)

	response, err := c.llm.Complete(ctx,
		"You are a social media expert. Generate relevant, trending hashtags for news content.",
		prompt, 200)
	if err != nil {
		return nil, err
	}

	return parseHashtags(response), nil
}

func (c *Curator) generateWebsite(ctx context.Context, title, summary, rewritten string) (domain.WebsiteContent, error) {
	prompt := fmt.Sprintf(`Create website content for this news article.

Original Title: %s
Summary: %s
Content: %s

Generate an SEO-friendly headline, a summary paragraph and three detailed paragraphs.

Format your response exactly as:
HEADLINE:
[your headline]

SUMMARY:
[your summary paragraph]

PARAGRAPH_1:
[first paragraph]

PARAGRAPH_2:
[second paragraph]

PARAGRAPH_3:
[third paragraph]`, title, summary, truncate(rewritten, 2000))

	response, err := c.llm.Complete(ctx,
		"You are a professional news writer for a technology news website. Write clear, engaging, factual copy.",
		prompt, 0)
	if err != nil {
		return domain.WebsiteContent{}, err
	}

	website := parseWebsite(response, title, summary)

	// Pad to three paragraphs so the curated payload is always complete.
	for len(website.Paragraphs) < 3 {
		filler := rewritten
		if filler == "" {
			filler = summary
		}
		website.Paragraphs = append(website.Paragraphs, truncate(filler, 500))
	}
	return website, nil
}

func (c *Curator) generateTeaser(ctx context.Context, title, summary string) (string, error) {
	prompt := fmt.Sprintf(`Create a Telegram teaser for this news article.

Title: %s
Summary: %s

Write a catchy 2-3 sentence teaser starting with a relevant emoji.
Just provide the teaser text, nothing else:`, title, summary)

	response, err := c.llm.Complete(ctx,
		"You are a social media manager creating conversational, curiosity-driven Telegram post teasers.",
		prompt, 300)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func (c *Curator) generateCaption(ctx context.Context, title, summary string) (string, error) {
	prompt := fmt.Sprintf(`Create an Instagram caption for this news.

Title: %s
Summary: %s

Write a punchy 1-2 sentence caption starting with an attention-grabbing emoji.
Just provide the caption text, no hashtags:`, title, summary)

	response, err := c.llm.Complete(ctx,
		"You are an Instagram content creator for a tech news account. Short, catchy, engaging.",
		prompt, 200)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
