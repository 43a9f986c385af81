package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davrbek/coursehub-backend/internal/platform/apierr"
)

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondError maps a service error onto the wire. Internal details never
// leave the process; the client sees the status, code and public message.
func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	body := gin.H{"error": ae.Code}
	if msg := ae.Message(); msg != "" {
		body["detail"] = msg
	}
	c.AbortWithStatusJSON(ae.Status, body)
}
