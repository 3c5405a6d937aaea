package paging

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

type Page struct {
	Limit  int
	Offset int
	Order  string // asc | desc
}

// FromQuery reads limit/offset/order the way every list endpoint accepts them.
func FromQuery(c *gin.Context) Page {
	return Page{
		Limit:  atoiDef(c.Query("limit"), DefaultLimit),
		Offset: atoiDef(c.Query("offset"), 0),
		Order:  strings.ToLower(c.DefaultQuery("order", "desc")),
	}.Normalize()
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
	return p
}

// Dir is the SQL keyword for Order.
func (p Page) Dir() string {
	if p.Order == "asc" {
		return "ASC"
	}
	return "DESC"
}

// NextOffset is 0 when there is no next page.
func NextOffset(total int64, p Page) int {
	n := p.Offset + p.Limit
	if n >= int(total) {
		return 0
	}
	return n
}

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}

// Respond writes the list envelope shared by every list endpoint.
func Respond[T any](c *gin.Context, items []T, total int64, p Page) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total, "next_offset": NextOffset(total, p)})
}
