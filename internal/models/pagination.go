package models

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Normalize applies defaults and clamps the page size to [1, MaxPageSize].
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	switch {
	case p.Size == 0:
		p.Size = DefaultPageSize
	case p.Size < 1:
		p.Size = 1
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type PageResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func NewPageResult[T any](items []T, total int64, p Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.Size > 0 {
		pages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return PageResult[T]{Items: items, Total: total, Page: p.Number, PageSize: p.Size, TotalPages: pages}
}
