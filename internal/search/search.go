// Package search provides full-text search over grievances, preferring
// Meilisearch and falling back to PostgreSQL FTS when it is unavailable.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	District string `json:"district,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterStatus   string // empty = all statuses
	FilterCategory string
	CitizenID      int64 // non-zero restricts hits to this citizen's grievances
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// GrievanceRecord is the data we index for a grievance.
type GrievanceRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	CitizenID   int64  `json:"citizenId"`
	State       string `json:"state"`
	District    string `json:"district"`
}
