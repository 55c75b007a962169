// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/app/services"
	"github.com/dealdesk/deal-desk/models"
	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// Authenticate validates the bearer token and stores the user identity in the
// request context
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "MISSING_AUTHORIZATION_HEADER", "Authorization header is required")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'")
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return unauthorized(c, "MISSING_ACCESS_TOKEN", "Access token is required")
		}

		// Validation also covers revocation
		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				return unauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
			case errors.Is(err, services.ErrTokenRevoked):
				return unauthorized(c, "TOKEN_REVOKED", "Access token has been revoked")
			case errors.Is(err, services.ErrTokenInvalid):
				return unauthorized(c, "TOKEN_INVALID", "Invalid access token")
			default:
				return unauthorized(c, "TOKEN_VALIDATION_FAILED", "Token validation failed")
			}
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		if claims.Department != nil {
			c.Locals("user_department", *claims.Department)
		}
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireRoles restricts the route to users holding one of the given roles.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireRoles(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			return unauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
		}
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Insufficient permissions for this operation",
			Error: dto.ErrorDetail{
				Code: "FORBIDDEN_ROLE",
			},
		})
	}
}

// RequireAdmin restricts the route to administrators
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRoles(models.RoleAdmin)
}

func unauthorized(c fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code: code,
		},
	})
}

// GetUserIDFromContext extracts the authenticated user ID from the request context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetUserRoleFromContext extracts the authenticated user's role from the request context
func GetUserRoleFromContext(c fiber.Ctx) (string, bool) {
	role, ok := c.Locals("user_role").(string)
	return role, ok
}

// GetUserDepartmentFromContext extracts the reviewer department, when present
func GetUserDepartmentFromContext(c fiber.Ctx) (string, bool) {
	department, ok := c.Locals("user_department").(string)
	return department, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
