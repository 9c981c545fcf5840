package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mail-archiver/mail-archiver/internal/search"
	"github.com/mail-archiver/mail-archiver/internal/utils"
)

type SearchHandler struct {
	service *search.Service
}

func NewSearchHandler(service *search.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.Search)
}

// Search runs the Search Service (spec §4.H) against query-string filters.
// AllowedAccountIDs (the server-side account scoping) is left nil here, which
// applies no account scoping (a non-nil empty set would return no rows),
// since this spec's Non-goals exclude end-user auth/session scoping.
func (h *SearchHandler) Search(c *gin.Context) {
	filters := search.Filters{
		AccountID: c.Query("account_id"),
		Direction: c.Query("direction"),
		Folder:    c.Query("folder"),
		OrderBy:   c.DefaultQuery("order_by", "sent_date"),
		OrderDir:  c.DefaultQuery("order_dir", "desc"),
	}

	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = &t
		} else {
			utils.Error(c, http.StatusBadRequest, "invalid from date, expected RFC3339", err)
			return
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = &t
		} else {
			utils.Error(c, http.StatusBadRequest, "invalid to date, expected RFC3339", err)
			return
		}
	}

	filters.Skip = queryInt(c, "skip", 0)
	filters.Take = queryInt(c, "take", 50)
	if filters.Take <= 0 || filters.Take > 500 {
		filters.Take = 50
	}

	result, err := h.service.Search(c.Request.Context(), c.Query("q"), filters)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "search failed", err)
		return
	}
	utils.SuccessData(c, gin.H{"rows": result.Rows, "total": result.Total})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
