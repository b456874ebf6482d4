// internal/api/handlers/errors.go
package handlers

import (
	"part-request-portal-api-server/internal/api/apierror"

	"github.com/gin-gonic/gin"
)

// respondError writes err as a StandardError body. The original error is
// attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	std := apierror.FromError(err)
	c.Error(err)
	c.AbortWithStatusJSON(std.HTTPStatus(), std)
}

func respondBindError(c *gin.Context, err error) {
	c.Error(err)
	std := apierror.NewInvalidRequest("invalid request body", err.Error())
	c.AbortWithStatusJSON(std.HTTPStatus(), std)
}
