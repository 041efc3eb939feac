package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/models"
)

// GetCaptcha returns a handler for GET /api/v1/captcha, describing the
// CAPTCHA waiting for a human, if any.
func GetCaptcha(p *captcha.ChannelPrompter) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, ok := p.Pending()
		if !ok {
			abort(c, models.ErrCodeNotFound, "no captcha is waiting")
			return
		}
		c.JSON(http.StatusOK, models.PendingCaptcha{
			ID:       pending.ID,
			Since:    pending.Since,
			ImageURL: "/api/v1/captcha/image",
		})
	}
}

// GetCaptchaImage returns a handler for GET /api/v1/captcha/image.
func GetCaptchaImage(p *captcha.ChannelPrompter) gin.HandlerFunc {
	return func(c *gin.Context) {
		pending, ok := p.Pending()
		if !ok {
			abort(c, models.ErrCodeNotFound, "no captcha is waiting")
			return
		}
		c.Header("Cache-Control", "no-store")
		c.File(pending.ImagePath)
	}
}

// PostCaptcha returns a handler for POST /api/v1/captcha, delivering a human
// answer to the waiting run.
func PostCaptcha(p *captcha.ChannelPrompter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CaptchaAnswer
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, models.ErrCodeInvalidInput, err.Error())
			return
		}

		if err := p.Answer(req.ID, req.Text); err != nil {
			code := models.ErrCodeInvalidInput
			if errors.Is(err, captcha.ErrNoPending) {
				code = models.ErrCodeNotFound
			}
			abort(c, code, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	}
}
