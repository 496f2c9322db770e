// Package tokenauth gates protected routes behind a bearer session token.
// The gate proves token validity and extracts the claimed user id; it never
// re-fetches the identity record, and it never tells the caller which part
// of validation failed.
package tokenauth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrTokenMissingOrMalformed covers an absent Authorization header and any
// header that does not conform to the "Bearer <token>" shape.
var ErrTokenMissingOrMalformed = fiber.NewError(fiber.StatusUnauthorized, "missing or malformed bearer token")

// TokenValidator mirrors the auth core's TokenService.Validate without
// creating an import cycle.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims mirrors the auth core's claims interface.
type AuthClaims interface {
	Subject() string
	UserID() string
	Expires() time.Time
	IssuedAt() time.Time
}

type Config struct {
	// TokenValidator is required.
	TokenValidator TokenValidator

	// HeaderName defaults to Authorization.
	HeaderName string
	// AuthScheme defaults to Bearer.
	AuthScheme string
	// ContextKey is the Locals key for validated claims; defaults to "claims".
	ContextKey string

	// Filter skips the gate for matching requests.
	Filter func(*fiber.Ctx) bool
	// SuccessHandler runs after the context is populated; defaults to Next.
	SuccessHandler fiber.Handler
	// ErrorHandler maps gate failures; the default answers 401 with no
	// validator-internal detail.
	ErrorHandler fiber.ErrorHandler

	// ContextEnricher propagates the claimed user id to the standard Go
	// context for downstream handlers.
	ContextEnricher func(ctx context.Context, claims AuthClaims) context.Context
}

// New returns the gate middleware.
func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := FromHeader(c.Get(cfg.HeaderName), cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)
		c.Locals(UserIDKey, claims.UserID())

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return cfg.SuccessHandler(c)
	}
}

// UserIDKey is the Locals key holding the authenticated user id.
const UserIDKey = "auth_user_id"

// UserID returns the authenticated user id attached by the gate.
func UserID(c *fiber.Ctx) (string, bool) {
	raw, ok := c.Locals(UserIDKey).(string)
	return raw, ok && raw != ""
}

// Claims returns the validated claims attached by the gate.
func Claims(c *fiber.Ctx, key string) (AuthClaims, bool) {
	if key == "" {
		key = "claims"
	}
	claims, ok := c.Locals(key).(AuthClaims)
	return claims, ok
}

// FromHeader extracts the raw token from a header value. Any shape other
// than "<scheme> <token>" is a failure.
func FromHeader(header, authScheme string) (string, error) {
	if header == "" {
		return "", ErrTokenMissingOrMalformed
	}

	l := len(authScheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], authScheme) || header[l] != ' ' {
		return "", ErrTokenMissingOrMalformed
	}

	token := strings.TrimSpace(header[l+1:])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrTokenMissingOrMalformed
	}

	return token, nil
}

func defaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("tokenauth: middleware configuration requires a TokenValidator")
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = fiber.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "claims"
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthenticated",
			})
		}
	}

	return cfg
}
