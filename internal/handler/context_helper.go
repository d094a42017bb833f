package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/evalio/evalio-api/internal/middleware"
	"github.com/evalio/evalio-api/internal/models"
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

func schoolIDQuery(c *gin.Context) *string {
	if value := c.Query("school_id"); value != "" {
		return &value
	}
	return nil
}
