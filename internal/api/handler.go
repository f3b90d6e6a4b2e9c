// Package api holds the gin handlers of the /api surface. Every mutating
// response carries a notification.
package api

import (
	"net/http"

	"projtrack/internal/apperr"
	"projtrack/internal/notify"

	"github.com/gin-gonic/gin"
)

type responder struct {
	notifier *notify.Notifier
}

func (r responder) fail(c *gin.Context, op string, err error) {
	note := r.notifier.FromError(op, err)
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error":        note.Message,
		"notification": note,
	})
}

func (r responder) success(c *gin.Context, status int, msg string, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["notification"] = r.notifier.Success(msg)
	c.JSON(status, body)
}

func (r responder) info(c *gin.Context, msg string, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["notification"] = r.notifier.Info(msg)
	c.JSON(http.StatusOK, body)
}

// loadWarning attaches a warning while stored data that failed to decode at
// startup has not been replaced.
func (r responder) loadWarning(body gin.H, err error) gin.H {
	if err != nil {
		body["notification"] = r.notifier.Warning(apperr.Message(err))
	}
	return body
}

// bind decodes the JSON body, reporting malformed input as a validation error.
func (r responder) bind(c *gin.Context, op string, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		r.fail(c, op, apperr.Validation("Requisição inválida: %v", err))
		return false
	}
	return true
}
