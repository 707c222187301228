package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courtside-scheduler/internal/middleware"
	"github.com/noah-isme/courtside-scheduler/internal/models"
	"github.com/noah-isme/courtside-scheduler/pkg/middleware/requestid"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestMeta tags write responses with the acting organizer and request id.
func requestMeta(c *gin.Context) map[string]interface{} {
	meta := map[string]interface{}{}
	if id := requestid.Value(c); id != "" {
		meta["requestId"] = id
	}
	if claims := claimsFromContext(c); claims != nil {
		meta["actor"] = claims.UserID
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
