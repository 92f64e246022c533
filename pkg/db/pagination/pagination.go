package pagination

// Pagination carries the caller supplied row limit for list queries.
// Services clamp it against the configured bounds.
type Pagination struct {
	Limit int `form:"limit" json:"limit"`
}
