package models

// Page is a fetched document. HTML is already decoded to UTF-8 and bounded by
// the fetcher's byte limit.
type Page struct {
	URL       string `json:"url"`
	Status    int    `json:"status"`
	HTML      string `json:"-"`
	Truncated bool   `json:"truncated"`
}
