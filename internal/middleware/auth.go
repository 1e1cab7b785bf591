package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/myadbox/thumbnailer/pkg/response"
)

// ServiceClaims identify the internal caller submitting assets
type ServiceClaims struct {
	jwt.RegisteredClaims
}

// AuthMiddleware validates HMAC-signed bearer tokens shared between
// internal services
type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: secret}
}

// Authenticate validates the JWT from the Authorization header
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims := &ServiceClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(m.secret), nil
		})
		if err != nil || !token.Valid {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals("subject", claims.Subject)
		return c.Next()
	}
}

// GetSubject returns the authenticated caller, if any
func GetSubject(c *fiber.Ctx) string {
	if subject, ok := c.Locals("subject").(string); ok {
		return subject
	}
	return ""
}
