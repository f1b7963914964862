package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const promptCount = 3

// Appended to every prompt so a terse LLM reply still renders well.
const qualitySuffix = ", professional photography, high quality, detailed, news editorial style"

// ChatCompleter is the LLM call the prompt writer depends on.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// PromptWriter asks the LLM for three distinct image prompts for an article.
// It always returns exactly three usable prompts: missing or malformed lines
// are padded with deterministic title-based fallbacks so image generation is
// never blocked on a free-form reply.
type PromptWriter struct {
	llm    ChatCompleter
	logger *slog.Logger
}

func NewPromptWriter(llm ChatCompleter, logger *slog.Logger) *PromptWriter {
	return &PromptWriter{llm: llm, logger: logger.With("component", "prompt_writer")}
}

func (w *PromptWriter) WritePrompts(ctx context.Context, title, summary string) ([]string, error) {
	userPrompt := fmt.Sprintf(`Create 3 distinct image generation prompts for this news article.

Title: %s
Summary: %s

Each prompt should describe a different visual angle on the story: one wide
establishing scene, one focused on the key subject, one abstract or symbolic.
No text, letters or logos in any image.

Format your response exactly as:
PROMPT_1: [first prompt]
PROMPT_2: [second prompt]
PROMPT_3: [third prompt]`, title, summary)

	response, err := w.llm.Complete(ctx,
		"You are a visual director writing prompts for an AI image generator. Be concrete and visual.",
		userPrompt, 500)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.logger.Warn("prompt generation failed, using fallbacks", "error", err)
		return fallbackPrompts(title), nil
	}

	prompts := parsePrompts(response)
	if len(prompts) < promptCount {
		w.logger.Warn("got fewer prompts than expected, padding",
			"got", len(prompts))
		prompts = append(prompts, fallbackPrompts(title)[len(prompts):]...)
	}
	return prompts[:promptCount], nil
}

func parsePrompts(response string) []string {
	var prompts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		for i := 1; i <= promptCount; i++ {
			prefix := fmt.Sprintf("PROMPT_%d:", i)
			if strings.HasPrefix(line, prefix) {
				if p := strings.TrimSpace(strings.TrimPrefix(line, prefix)); p != "" {
					prompts = append(prompts, p+qualitySuffix)
				}
				break
			}
		}
		if len(prompts) == promptCount {
			break
		}
	}
	return prompts
}

func fallbackPrompts(title string) []string {
	return []string{
		"Wide-angle news photograph illustrating: " + title + qualitySuffix,
		"Close-up editorial shot of the subject of: " + title + qualitySuffix,
		"Abstract conceptual illustration representing: " + title + qualitySuffix,
	}
}
