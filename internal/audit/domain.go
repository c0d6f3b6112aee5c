package audit

import "time"

// TimelineFilters narrows the audit trail.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  *int64
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// Entry is one row of the audit trail.
type Entry struct {
	ID         int64          `json:"id"`
	At         time.Time      `json:"at"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	ActorEmail string         `json:"actor_email,omitempty"`
	Action     string         `json:"action"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// PagingInfo is forward-only paging metadata; the trail is never counted.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []Entry    `json:"data"`
	Paging PagingInfo `json:"paging"`
}

// CSVRow is the flat export shape of an Entry.
type CSVRow struct {
	At         string `csv:"at"`
	ActorEmail string `csv:"actor"`
	Action     string `csv:"action"`
	Entity     string `csv:"entity"`
	EntityID   string `csv:"entity_id"`
	Meta       string `csv:"meta"`
}
