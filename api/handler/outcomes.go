package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/store"
)

// Outcomes returns a handler for GET /api/v1/outcomes?court=&limit=.
func Outcomes(h *store.History) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h == nil {
			abort(c, models.ErrCodeNotFound, "outcome history is not enabled")
			return
		}

		limit := 50
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 500 {
				abort(c, models.ErrCodeInvalidInput, "limit must be between 1 and 500")
				return
			}
			limit = n
		}

		entries, err := h.Recent(c.Request.Context(), c.Query("court"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		if entries == nil {
			entries = []store.HistoryEntry{}
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}
