package models

import "time"

// TextSearchRequest represents the body of POST /api/search/text
type TextSearchRequest struct {
	Query string `json:"query"`
}

// ImageSearchRequest represents the JSON body of POST /api/search/image.
// Image may be raw base64 or a data URL.
type ImageSearchRequest struct {
	Image string `json:"image"`
}

// RecordRequest names a record by id, used by find-similar and selection.
type RecordRequest struct {
	ID string `json:"id"`
}

// ThemeRequest represents the body of PUT /api/theme
type ThemeRequest struct {
	Theme string `json:"theme"`
}

// ThemeResponse represents the current theme preference
type ThemeResponse struct {
	Theme  string `json:"theme"`
	Source string `json:"source"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}

// DebugRecord summarizes a record for the debug view
type DebugRecord struct {
	Index       int      `json:"index"`
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
	ImageLength int      `json:"image_length"`
	ImagePrefix string   `json:"image_prefix,omitempty"`
}

// DebugResponse represents the body of GET /api/debug
type DebugResponse struct {
	Total   int           `json:"total"`
	Records []DebugRecord `json:"records"`
}

// SearchLogEntry is one recorded gateway fetch.
type SearchLogEntry struct {
	ID          int64     `json:"id"`
	Mode        Mode      `json:"mode"`
	Parameter   string    `json:"parameter,omitempty"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
	ResultCount int       `json:"result_count"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse represents the body of GET /api/history
type HistoryResponse struct {
	Entries []SearchLogEntry `json:"entries"`
}

// SessionResponse is the browser-facing view of a search session
type SessionResponse struct {
	Mode        Mode         `json:"mode"`
	Query       string       `json:"query,omitempty"`
	ObjectID    string       `json:"object_id,omitempty"`
	ImageLength int          `json:"image_length,omitempty"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	Records     []RecordView `json:"records"`
	Selected    *RecordView  `json:"selected,omitempty"`
	Connected   bool         `json:"connected"`
	Connecting  bool         `json:"connecting"`
	Searching   bool         `json:"searching"`
	LoadingMore bool         `json:"loading_more"`
	CanLoadMore bool         `json:"can_load_more"`
	Error       string       `json:"error,omitempty"`
	Notice      string       `json:"notice,omitempty"`
}
