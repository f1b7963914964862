package curation

import (
	"strings"

	"newsroom/internal/domain"
)

// parseSummaryRewritten splits a SUMMARY:/REWRITTEN: reply. On malformed input
// the whole response is used as both (summary truncated), and ok is false.
func parseSummaryRewritten(response string) (summary, rewritten string, ok bool) {
	if strings.Contains(response, "SUMMARY:") && strings.Contains(response, "REWRITTEN:") {
		parts := strings.SplitN(response, "REWRITTEN:", 2)
		summary = strings.TrimSpace(strings.Replace(parts[0], "SUMMARY:", "", 1))
		rewritten = strings.TrimSpace(parts[1])
		if summary != "" && rewritten != "" {
			return summary, rewritten, true
		}
	}
	summary = truncate(strings.TrimSpace(response), 500)
	return summary, strings.TrimSpace(response), false
}

// parseEntities reads PEOPLE:/ORGANIZATIONS:/LOCATIONS: lines. Unknown lines
// are ignored; "none" means an empty list.
func parseEntities(response string) domain.Entities {
	var entities domain.Entities
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "PEOPLE:"):
			entities.People = splitEntityList(strings.TrimPrefix(line, "PEOPLE:"))
		case strings.HasPrefix(line, "ORGANIZATIONS:"):
			entities.Organizations = splitEntityList(strings.TrimPrefix(line, "ORGANIZATIONS:"))
		case strings.HasPrefix(line, "LOCATIONS:"):
			entities.Locations = splitEntityList(strings.TrimPrefix(line, "LOCATIONS:"))
		}
	}
	return entities
}

func splitEntityList(items string) []string {
	items = strings.TrimSpace(items)
	if items == "" || strings.EqualFold(items, "none") {
		return nil
	}
	var out []string
	for _, item := range strings.Split(items, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseHashtags normalizes a comma- or newline-separated tag list, prefixing
// missing # and capping at 8.
func parseHashtags(response string) []string {
	var hashtags []string
	for _, tag := range strings.Split(strings.ReplaceAll(response, "\n", ","), ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		hashtags = append(hashtags, tag)
		if len(hashtags) == 8 {
			break
		}
	}
	return hashtags
}

// parseWebsite reads the HEADLINE:/SUMMARY:/PARAGRAPH_n: sections, falling
// back to the originals for missing headline or summary.
func parseWebsite(response, fallbackTitle, fallbackSummary string) domain.WebsiteContent {
	website := domain.WebsiteContent{
		Title:   fallbackTitle,
		Summary: fallbackSummary,
	}

	lines := strings.Split(response, "\n")
	current := ""
	var paragraph []string

	flush := func() {
		if current == "paragraph" && len(paragraph) > 0 {
			website.Paragraphs = append(website.Paragraphs, strings.Join(paragraph, " "))
		}
		paragraph = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "HEADLINE:":
			flush()
			current = "headline"
		case trimmed == "SUMMARY:":
			flush()
			current = "summary"
		case strings.HasPrefix(trimmed, "PARAGRAPH_"):
			flush()
			current = "paragraph"
		case trimmed == "":
			continue
		default:
			switch current {
			case "headline":
				website.Title = trimmed
				current = ""
			case "summary":
				website.Summary = trimmed
				current = ""
			case "paragraph":
				paragraph = append(paragraph, trimmed)
			}
		}
	}
	flush()

	return website
}
