// Package middleware provides the Fiber middleware shared by every route:
// authentication, rate limiting, logging, metrics and tracing.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"collectorhub/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Authenticator verifies HS256 bearer tokens and stores the subject as the
// "userID" local.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthenticator returns an Authenticator for the given signing secret.
// Empty issuer or audience values disable the matching claim check.
func NewAuthenticator(secret, issuer, audience string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, audience: audience}
}

// RequireAuth rejects requests without a valid bearer token.
func (a *Authenticator) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := a.authenticate(c.Get("Authorization"))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
		}
		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and lets
// anonymous requests through. A malformed or expired token is still rejected.
func (a *Authenticator) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Next()
		}
		userID, err := a.authenticate(header)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
		}
		setUser(c, userID)
		return c.Next()
	}
}

// IssueToken signs a token for userID valid for ttl.
func (a *Authenticator) IssueToken(userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if a.issuer != "" {
		claims["iss"] = a.issuer
	}
	if a.audience != "" {
		claims["aud"] = a.audience
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) authenticate(header string) (uint, error) {
	if header == "" {
		return 0, errors.New("authorization header required")
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, errors.New("invalid authorization header format")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		opts = append(opts, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse(parts[1], func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("invalid token structure - missing subject")
	}

	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errors.New("invalid user ID in token")
	}
	return uint(userID), nil
}

// setUser stores the caller in locals and in the user context so the
// context-aware logger picks it up downstream.
func setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// UserID returns the authenticated user id stored by RequireAuth or
// OptionalAuth, or 0 for anonymous callers.
func UserID(c *fiber.Ctx) uint {
	if id, ok := c.Locals("userID").(uint); ok {
		return id
	}
	return 0
}
