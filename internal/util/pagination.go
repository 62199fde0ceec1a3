package util

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Calculate turns a 1-based page and a page size into an offset and limit.
// Out-of-range values fall back to the first page and DefaultPageSize. Pages
// past the last representable offset are clamped so from+limit never overflows.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	if maxPage := math.MaxInt / size; page > maxPage {
		page = maxPage
	}
	return (page - 1) * size, size
}
