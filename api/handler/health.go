package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// ProbeFunc checks that the portal answers.
type ProbeFunc func(ctx context.Context) (*models.PortalProbe, error)

// Health returns a handler for GET /api/v1/health.
//
// With ?deep=1 the portal itself is probed and a failed probe degrades the
// status. The queue being busy is reported but is not a degradation.
func Health(q *Queue, probe ProbeFunc, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := models.HealthResponse{
			Status:  "healthy",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Busy:    q.Busy(),
			Queued:  q.Queued(),
			Version: Version,
		}

		if deep := c.Query("deep"); probe != nil && (deep == "1" || deep == "true") {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
			defer cancel()
			p, err := probe(ctx)
			switch {
			case err != nil:
				resp.Status = "degraded"
				resp.Portal = &models.PortalProbe{Error: err.Error()}
			case p.StatusCode >= 400:
				resp.Status = "degraded"
				resp.Portal = p
			default:
				resp.Portal = p
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}
