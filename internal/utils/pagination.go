package utils

import "strconv"

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// PaginationParams holds normalized offset/limit values for list endpoints.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination normalizes raw page/page_size query values.
func ParsePagination(pageRaw, sizeRaw string) PaginationParams {
	page, err := strconv.Atoi(pageRaw)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeRaw)
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return PaginationParams{
		Page:   page,
		Limit:  size,
		Offset: (page - 1) * size,
	}
}
