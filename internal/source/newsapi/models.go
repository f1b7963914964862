package newsapi

// APIResponse is the top-headlines payload from newsapi.org.
type APIResponse struct {
	Status       string    `json:"status"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []Content `json:"articles"`
}

type Content struct {
	Source      ContentSource `json:"source"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	URLToImage  string        `json:"urlToImage"`
	PublishedAt string        `json:"publishedAt"`
}

type ContentSource struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
