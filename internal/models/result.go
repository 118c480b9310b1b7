package models

// SearchResult is a single reranked hit. Score is the relevance score, not the vector similarity.
type SearchResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchResponse wraps the results of one search with its timing.
type SearchResponse struct {
	Collection string          `json:"collection"`
	Query      string          `json:"query"`
	Results    []*SearchResult `json:"results"`
	Total      int             `json:"total"`
	QueryTime  int64           `json:"query_time_ms"`
}
