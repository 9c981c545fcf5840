package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestAccountHandler_Create_RequiresProvider(t *testing.T) {
	h := NewAccountHandler(nil, nil, nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/accounts"))

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_Create_RequiresValidJSON(t *testing.T) {
	h := NewAccountHandler(nil, nil, nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/accounts"))

	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`not json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
