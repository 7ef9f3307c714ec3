package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"propagentic/inviteservice/internal/config"
	"propagentic/inviteservice/internal/handler/middleware"
	"propagentic/inviteservice/internal/model"
	jwtpkg "propagentic/inviteservice/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	authHandler *AuthHandler,
	inviteHandler *InviteHandler,
	propertyHandler *PropertyHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public auth routes
	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Validation is public: a prospective tenant checks a code before
	// creating an account.
	r.POST("/api/v1/invite-codes/validate", inviteHandler.Validate)

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(jwtManager))
	{
		protected.POST("/auth/logout", authHandler.Logout)

		tenant := protected.Group("")
		tenant.Use(middleware.RequireRole(string(model.RoleTenant)))
		{
			tenant.POST("/invite-codes/redeem", inviteHandler.Redeem)
		}

		landlord := protected.Group("")
		landlord.Use(middleware.RequireRole(string(model.RoleLandlord)))
		{
			landlord.POST("/invite-codes", inviteHandler.Generate)
			landlord.GET("/invite-codes", inviteHandler.List)
			landlord.DELETE("/invite-codes/:code", inviteHandler.Revoke)

			landlord.POST("/properties", propertyHandler.Create)
			landlord.GET("/properties", propertyHandler.List)
		}
	}

	return r
}
