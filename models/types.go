package models

// Record represents a single image object returned by Weaviate.
// ID is always set; every other field may be absent.
type Record struct {
	ID          string   `json:"id"`
	Image       string   `json:"image,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Width       int      `json:"width,omitempty"`
	Height      int      `json:"height,omitempty"`
	SourceSite  string   `json:"source_site,omitempty"`
	URL         string   `json:"url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Distance    *float64 `json:"distance,omitempty"`
}

// Relevance reports 1 - distance. ok is false for records without a distance,
// which is the case for plain listings.
func (r Record) Relevance() (relevance float64, ok bool) {
	if r.Distance == nil {
		return 0, false
	}
	return 1 - *r.Distance, true
}

// RecordView is the JSON shape of a record sent to the browser.
type RecordView struct {
	Record
	Relevance *float64 `json:"relevance,omitempty"`
}

// NewRecordView attaches the derived relevance to r.
func NewRecordView(r Record) RecordView {
	v := RecordView{Record: r}
	if rel, ok := r.Relevance(); ok {
		v.Relevance = &rel
	}
	return v
}

// NewRecordViews converts a slice of records, preserving order.
func NewRecordViews(records []Record) []RecordView {
	views := make([]RecordView, 0, len(records))
	for _, r := range records {
		views = append(views, NewRecordView(r))
	}
	return views
}
