package paging

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func queryContext(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := FromQuery(queryContext("/x?limit=9999&offset=-3&order=ASC"))
	assert.Equal(t, Page{Limit: MaxLimit, Offset: 0, Order: "asc"}, p)
	assert.Equal(t, "ASC", p.Dir())

	// gin caches parsed query values per context
	p = FromQuery(queryContext("/x?limit=abc&order=sideways"))
	assert.Equal(t, Page{Limit: DefaultLimit, Offset: 0, Order: "desc"}, p)
}

func TestNextOffset(t *testing.T) {
	assert.Equal(t, 10, NextOffset(25, Page{Limit: 10, Offset: 0}))
	assert.Equal(t, 0, NextOffset(20, Page{Limit: 10, Offset: 10}))
}
