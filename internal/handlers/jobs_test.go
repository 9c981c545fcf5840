package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mail-archiver/mail-archiver/internal/jobs"
	"github.com/mail-archiver/mail-archiver/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJobHandler_UnknownKind(t *testing.T) {
	h := &JobHandler{queues: map[models.JobKind]*jobs.Queue{}}

	r := gin.New()
	h.RegisterRoutes(r.Group("/jobs"))

	req := httptest.NewRequest(http.MethodGet, "/jobs/bogus", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobHandler_UnknownKind_ActiveRoute(t *testing.T) {
	h := &JobHandler{queues: map[models.JobKind]*jobs.Queue{}}

	r := gin.New()
	h.RegisterRoutes(r.Group("/jobs"))

	req := httptest.NewRequest(http.MethodGet, "/jobs/bogus/active", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}
