package shared

// DefaultPerPage is used when a listing does not ask for a page size.
const DefaultPerPage = 20

// Pagination is the page envelope returned next to list data.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination describes page of a listing holding total rows.
func NewPagination(page, perPage, total int) Pagination {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		page = 1
	}
	pages := 0
	if total > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// Offset is the number of rows skipped before the page starts.
func (p Pagination) Offset() int {
	if p.Page < 2 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}
