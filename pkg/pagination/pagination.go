package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params carries the sanitized page window of a list request.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string and clamps them to sane
// bounds. Invalid or missing values fall back to defaults rather than
// failing the request.
func Parse(c *gin.Context) Params {
	page := atoiOr(c.Query("page"), DefaultPage)
	limit := atoiOr(c.Query("limit"), DefaultLimit)

	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
