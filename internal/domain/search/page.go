package search

// Page is one page of a ranked channel.
type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalCount  int  `json:"totalCount"`
	CurrentPage int  `json:"currentPage"`
	PageSize    int  `json:"pageSize"`
	TotalPages  int  `json:"totalPages"`
	HasMore     bool `json:"hasMore"`
}

// Paginate slices [(page-1)*pageSize, page*pageSize) out of ranked.
// TotalCount is the pre-slice length. Items is never nil.
func Paginate[T any](ranked []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	total := len(ranked)
	p := Page[T]{
		Items:       []T{},
		TotalCount:  total,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalPages:  (total + pageSize - 1) / pageSize,
		HasMore:     page*pageSize < total,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return p
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	p.Items = make([]T, end-start)
	copy(p.Items, ranked[start:end])
	return p
}
