package storage

import "math"

// Offset converts a 1-based page number into a row offset. Offsets that
// would overflow saturate at math.MaxInt so the query comes back empty.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	if limit > 0 && page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
