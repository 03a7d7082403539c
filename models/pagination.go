package models

// Pagination describes the fixed set of pages offered by the reader
type Pagination struct {
	Page    int   `json:"page"`
	Pages   []int `json:"pages"`
	HasNext bool  `json:"has_next"`
	HasPrev bool  `json:"has_prev"`
}

// NewPagination creates the page selector state for page out of total pages
func NewPagination(page, total int) Pagination {
	if total < 1 {
		total = 1
	}

	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}

	return Pagination{
		Page:    page,
		Pages:   pages,
		HasNext: page < total,
		HasPrev: page > 1,
	}
}
