package middleware

import (
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	ctxKeyClaims    = "claims"
	ctxKeyRequestID = "request_id"
)

// ClaimsFrom returns the authenticated user's claims, if any.
func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(ctxKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}
