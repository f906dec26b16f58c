package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eesa/eesa-api/internal/access"
	"github.com/eesa/eesa-api/internal/middleware"
	"github.com/eesa/eesa-api/internal/models"
)

func callerIdentity(c *gin.Context) access.Identity {
	return middleware.CallerIdentity(c)
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func pageParams(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func boolQuery(c *gin.Context, name string) *bool {
	switch c.Query(name) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}
