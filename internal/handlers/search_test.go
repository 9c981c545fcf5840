package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestSearchHandler_InvalidFromDate(t *testing.T) {
	h := NewSearchHandler(nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/search"))

	req := httptest.NewRequest(http.MethodGet, "/search?from=not-a-date", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryInt_DefaultsOnMissingOrInvalid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var gotDefault, gotInvalidDefault, gotParsed int
	r.GET("/x", func(c *gin.Context) {
		gotDefault = queryInt(c, "skip", 7)
		gotInvalidDefault = queryInt(c, "bad", 9)
		gotParsed = queryInt(c, "take", 50)
	})

	req := httptest.NewRequest(http.MethodGet, "/x?bad=notanumber&take=25", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, 7, gotDefault)
	require.Equal(t, 9, gotInvalidDefault)
	require.Equal(t, 25, gotParsed)
}
