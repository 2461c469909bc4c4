package pagination

const (
	// DefaultPageSize is applied when a caller asks for a non-positive limit.
	DefaultPageSize = 25
	// MaxPageSize caps the number of rows a single page may request.
	MaxPageSize = 100
)

// ClampPaginationParams sanitizes limit/offset values coming from query
// parameters before they reach a database query.
func ClampPaginationParams(limit, offset int) (int, int) {
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
