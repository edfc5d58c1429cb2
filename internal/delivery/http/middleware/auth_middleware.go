package middleware

import (
	"strings"

	deliverycontext "herald/internal/delivery/context"
	"herald/internal/delivery/http/response"
	"herald/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware provides middleware for merchant session authentication.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the session JWT and stores the merchant ID on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "TOKEN_MISSING", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "TOKEN_MALFORMED", "Invalid token format, must be Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return response.Unauthorized(c, "TOKEN_INVALID", "Invalid or expired token")
		}
		if claims.MerchantID == "" {
			return response.Unauthorized(c, "TOKEN_INVALID", "Merchant ID missing from token")
		}

		// Set merchant info on the context for handlers to use
		deliverycontext.SetMerchantID(c, claims.MerchantID)

		return next(c)
	}
}
