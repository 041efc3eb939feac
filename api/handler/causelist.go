package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/cache"
	"github.com/use-agent/causelist/models"
)

// MaxCourtsPerJob bounds a single request.
const MaxCourtsPerJob = 50

// PostCauseList returns a handler for POST /api/v1/causelist.
// The request is validated here and queued; the run happens on the queue's
// worker and is polled through GetCauseList.
func PostCauseList(q *Queue, cc *cache.Cache, window int) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.CauseListRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, models.ErrCodeInvalidInput, err.Error())
			return
		}
		if len(req.Courts) > MaxCourtsPerJob {
			abort(c, models.ErrCodeInvalidInput, "too many courts in one request")
			return
		}

		// ── 2. Build and validate criteria up front ─────────────────
		criteria, err := req.Criteria(cc.Labels())
		if err != nil {
			respondError(c, err)
			return
		}
		now := time.Now()
		for _, cr := range criteria {
			if err := cr.Validate(now, window); err != nil {
				respondError(c, err)
				return
			}
		}

		// ── 3. Queue ────────────────────────────────────────────────
		j, err := q.Submit(criteria)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, models.CauseListResponse{ID: j.ID, Status: j.Status, Total: j.Total})
	}
}

// GetCauseList returns a handler for GET /api/v1/causelist/:id.
func GetCauseList(q *Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		j, ok := q.Get(c.Param("id"))
		if !ok {
			abort(c, models.ErrCodeNotFound, "job not found")
			return
		}
		c.JSON(http.StatusOK, j)
	}
}
