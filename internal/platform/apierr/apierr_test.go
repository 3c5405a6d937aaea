package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrInvalid("x")))
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(ErrNotFound("x")))
	assert.Equal(t, http.StatusConflict, ToHTTPStatus(fmt.Errorf("wrapped: %w", ErrConflict("x"))))
	assert.Equal(t, http.StatusTooManyRequests, ToHTTPStatus(&APIError{Code: CodeTooManyRequests}))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("db down")))
	assert.True(t, Is(Invalidf("bad %s", "date"), CodeInvalidArgument))
}

func TestRespondHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/equipment", nil)
	Respond(c, errors.New("dial tcp 10.0.0.1:3306: refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body["error"]["code"])
	assert.Equal(t, "internal error", body["error"]["message"])
}
