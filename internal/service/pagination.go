package service

import "scrap/internal/domain"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Page is a validated 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage validates a page request. A zero number or limit takes the default.
func NewPage(number, limit int) (Page, error) {
	if number == 0 {
		number = 1
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}

	v := &domain.ValidationError{}
	if number < 1 {
		v.Add("page", "must be at least 1")
	}
	if limit < 1 || limit > MaxPageLimit {
		v.Addf("limit", "must be between 1 and %d", MaxPageLimit)
	}
	if err := v.Err(); err != nil {
		return Page{}, err
	}

	return Page{Number: number, Limit: limit}, nil
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// PageInfo describes where a page sits in the full result.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func (p Page) info(total int) PageInfo {
	return PageInfo{
		Page:       p.Number,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}
}
