package httpx

import (
	"net/http"
	"strconv"
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParsePageSize parses 1-based page/size params and clamps to sane bounds.
// It returns the zero-based offset and the limit.
func ParsePageSize(r *http.Request, defSize, maxSize int) (offset, limit int) {
	if maxSize < 1 {
		maxSize = 1
	}

	page := parseIntQuery(r, "page", 1)
	size := parseIntQuery(r, "size", defSize)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	return (page - 1) * size, size
}
