package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/talentdesk/backend/pkg/apperr"
)

func render(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h(c)
	return w
}

func TestEnvelope(t *testing.T) {
	w := render(func(c *gin.Context) { OK(c, gin.H{"n": 1}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, w.Body.String())

	w = render(func(c *gin.Context) { Deleted(c, "abc") })
	assert.JSONEq(t, `{"success":true,"data":{"id":"abc","deleted":true}}`, w.Body.String())

	w = render(func(c *gin.Context) { BadRequest(c, "title is required") })
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"title is required"}`, w.Body.String())
}

func TestNoContent(t *testing.T) {
	w := render(NoContent)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", apperr.NotFound("get artist", "artist not found"), http.StatusNotFound},
		{"conflict", apperr.New(apperr.KindConflict, "create user", "email already registered"), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := render(func(c *gin.Context) { Error(c, tc.err) })
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}
