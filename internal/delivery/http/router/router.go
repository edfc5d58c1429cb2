// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"herald/internal/delivery/http/middleware"
	"herald/internal/delivery/http/router/handler"
	"herald/internal/domain/service"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	OAuthHandler   *handler.OAuthHandler
	ProfileHandler *handler.ProfileHandler
	AuthMiddleware *middleware.AuthMiddleware
	OAuthService   service.OAuthService
}

// router holds all the handlers that need to be registered.
type router struct {
	oauthHandler   *handler.OAuthHandler
	profileHandler *handler.ProfileHandler
	authMiddleware *middleware.AuthMiddleware
	providerPrefix string
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		oauthHandler:   params.OAuthHandler,
		profileHandler: params.ProfileHandler,
		authMiddleware: params.AuthMiddleware,
		providerPrefix: "/" + params.OAuthService.Provider().String(),
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// All merchant-facing routes live under the active provider's prefix.
	providerGroup := e.Group(r.providerPrefix)

	// OAuth routes are public: the merchant has no session yet.
	providerGroup.GET("/oauth", r.oauthHandler.Authorize)
	providerGroup.GET("/oauth/callback", r.oauthHandler.Callback)

	// Merchant routes that require an authenticated session
	sellerGroup := providerGroup.Group("/seller")
	sellerGroup.Use(r.authMiddleware.Authenticate)
	{
		sellerGroup.GET("/info", r.profileHandler.SellerInfo)
	}

	profileGroup := providerGroup.Group("/profile")
	profileGroup.Use(r.authMiddleware.Authenticate)
	{
		profileGroup.GET("", r.profileHandler.PrepareProfile)
		profileGroup.GET("/published", r.profileHandler.PublishedProfile)
		profileGroup.POST("/publish", r.profileHandler.PublishProfile)
	}
}
