package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage = 1
	DefaultSize = 20
	MaxSize     = 100
)

// Query holds parsed pagination parameters.
type Query struct {
	Page int
	Size int
}

// Meta describes the page returned alongside the items.
type Meta struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"currentPage"`
	TotalPage   int  `json:"totalPage"`
	Size        int  `json:"size"`
	HasNextPage bool `json:"hasNextPage"`
}

// FromContext reads ?page= and ?size=, clamping them to sane bounds.
func FromContext(c *gin.Context) Query {
	q := Query{
		Page: parseIntOr(c.Query("page"), DefaultPage),
		Size: parseIntOr(c.Query("size"), DefaultSize),
	}
	return q.normalize()
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Size < 1 {
		q.Size = DefaultSize
	}
	q.Size = min(q.Size, MaxSize)
	return q
}

// Slice returns the requested page of an in-memory list.
func Slice[T any](items []T, q Query) ([]T, Meta) {
	q = q.normalize()
	total := len(items)
	start := min((q.Page-1)*q.Size, total)
	end := min(start+q.Size, total)
	totalPage := (total + q.Size - 1) / q.Size
	return items[start:end:end], Meta{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	}
}

func parseIntOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
