package dto

const (
	ResultApplication = "application"
	ResultUser        = "user"
	ResultCategory    = "category"
)

// SearchResult is one row of a quick search.
type SearchResult struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	URL      string `json:"url"`
}

type QuickSearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int64          `json:"total"`
}

// Suggestions groups matches by kind.
type Suggestions struct {
	Applications []SearchResult `json:"applications"`
	Users        []SearchResult `json:"users"`
	Categories   []SearchResult `json:"categories"`
}

type Filters struct {
	Categories []NameCount `json:"categories"`
	Tags       []NameCount `json:"tags"`
}
