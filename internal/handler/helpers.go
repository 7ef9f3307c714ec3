package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"propagentic/inviteservice/internal/handler/middleware"
	jwtpkg "propagentic/inviteservice/pkg/jwt"
)

var ErrNoClaims = errors.New("claims not found in context")

func claimsFromContext(c *gin.Context) (*jwtpkg.Claims, error) {
	claimsVal, exists := c.Get(middleware.ContextKeyUserClaims)
	if !exists {
		return nil, ErrNoClaims
	}
	claims, ok := claimsVal.(*jwtpkg.Claims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// userIDFromContext returns the authenticated caller's user ID (the JWT
// subject) as a string identifier.
func userIDFromContext(c *gin.Context) (string, error) {
	claims, err := claimsFromContext(c)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
