package gnews

// APIResponse is the top-headlines payload from gnews.io.
type APIResponse struct {
	TotalArticles int       `json:"totalArticles"`
	Articles      []Content `json:"articles"`
}

type Content struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	Image       string        `json:"image"`
	PublishedAt string        `json:"publishedAt"`
	Source      ContentSource `json:"source"`
}

type ContentSource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
