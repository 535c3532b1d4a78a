package models

// Session describes one completed search run as handed to the sinks.
type Session struct {
	ID        string `json:"session_id"`
	Query     string `json:"query"`
	Estimated int64  `json:"estimated_results"`
	Pages     int    `json:"pages"`
}
