// Package middleware holds the fiber middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"strings"

	"github.com/amirasaad/deposit/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserContextKey is the fiber local holding the verified token.
const UserContextKey = "user"

// UserIDClaim carries the authenticated user's id.
const UserIDClaim = "user_id"

var (
	errMissingToken = errors.New("missing user context")
	errInvalidClaim = errors.New("token carries no valid user id")
)

// JwtProtected verifies HS256 bearer tokens signed with the configured secret.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	var secret []byte
	if cfg != nil {
		secret = []byte(cfg.Secret)
	}
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: secret},
		ContextKey:   UserContextKey,
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	status, title := fiber.StatusUnauthorized, "Unauthorized"
	if strings.EqualFold(err.Error(), "missing or malformed JWT") {
		status, title = fiber.StatusBadRequest, "Bad Request"
	}
	return c.Status(status).JSON(fiber.Map{
		"type":   "about:blank",
		"title":  title,
		"status": status,
		"detail": "missing, malformed or expired token",
	}, "application/problem+json")
}

// CurrentUserID reads the user id claim of the verified token.
func CurrentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(UserContextKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, errMissingToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errInvalidClaim
	}
	raw, ok := claims[UserIDClaim].(string)
	if !ok {
		return uuid.Nil, errInvalidClaim
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errInvalidClaim
	}
	return id, nil
}
