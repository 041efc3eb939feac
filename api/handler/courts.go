package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/cache"
	"github.com/use-agent/causelist/models"
)

// Courts returns a handler for GET /api/v1/courts.
//
// Lists are served from cc while fresh; ?refresh=1 bypasses it. Fetching
// needs the browser and fails with 409 while a run holds it.
func Courts(q *Queue, cc *cache.Cache, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("refresh") == "" {
			if courts, hit := cc.Get(key); hit {
				c.JSON(http.StatusOK, models.CourtsResponse{Courts: courts, CacheStatus: "hit"})
				return
			}
		}

		courts, err := q.FetchCourts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		cc.Set(key, courts)
		c.JSON(http.StatusOK, models.CourtsResponse{Courts: courts, CacheStatus: "miss"})
	}
}
