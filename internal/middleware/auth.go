// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"faithfulcity/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenIssuer is the iss claim of every session token.
	TokenIssuer = "faithfulcity-api"
	// TokenAudience is the aud claim of every session token.
	TokenAudience = "faithfulcity-client"
)

var (
	cfg *config.Config
	rdb *redis.Client
)

// InitMiddleware initializes authentication middleware with the given config.
// rdb may be nil, in which case revoked tokens are not checked.
func InitMiddleware(c *config.Config, client *redis.Client) {
	cfg = c
	rdb = client
}

// RevokedTokenKey is the Redis key marking a signed-out token id.
func RevokedTokenKey(jti string) string {
	return "auth:revoked:" + jti
}

// IsTokenRevoked reports whether jti was revoked by a sign-out.
// Redis errors count as not revoked.
func IsTokenRevoked(ctx context.Context, client *redis.Client, jti string) bool {
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, RevokedTokenKey(jti)).Result()
	if err != nil {
		Logger.WarnContext(ctx, "token revocation check failed", "error", err)
		return false
	}
	return n > 0
}

// ParseToken validates an HS256 session token and returns its registered claims.
func ParseToken(tokenString, secret string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

func authenticate(c *fiber.Ctx, tokenString string) error {
	claims, err := ParseToken(tokenString, cfg.JWTSecret)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}
	if IsTokenRevoked(c.UserContext(), rdb, claims.ID) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Session has been signed out",
		})
	}

	c.Locals("userID", claims.Subject)
	c.Locals("tokenID", claims.ID)
	if claims.ExpiresAt != nil {
		c.Locals("tokenExpiresAt", claims.ExpiresAt.Time)
	}
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.Subject))

	return c.Next()
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	token, err := bearerToken(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return authenticate(c, token)
}

// WebSocketAuthRequired accepts the token from the query string since browsers
// cannot set headers on websocket upgrades.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		var err error
		token, err = bearerToken(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Token required",
			})
		}
	}
	return authenticate(c, token)
}

// TokenExpiry returns the expiry of the token that authenticated the request.
func TokenExpiry(c *fiber.Ctx) time.Time {
	if exp, ok := c.Locals("tokenExpiresAt").(time.Time); ok {
		return exp
	}
	return time.Time{}
}
