package deskd

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/deskd/deskd/middleware/tokenauth"
)

// TokenValidatorAdapter bridges the core TokenService into the tokenauth
// gate, which declares its own validator interface to avoid an import cycle.
type TokenValidatorAdapter struct {
	Service TokenService
}

func (a TokenValidatorAdapter) Validate(tokenString string) (tokenauth.AuthClaims, error) {
	claims, err := a.Service.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter copies the validated claims and user id into the
// standard context so non-fiber code can read them downstream.
func ContextEnricherAdapter(ctx context.Context, claims tokenauth.AuthClaims) context.Context {
	if authClaims, ok := claims.(AuthClaims); ok {
		ctx = WithClaimsContext(ctx, authClaims)
	}
	return WithUserID(ctx, claims.UserID())
}

// NewTokenGate builds the bearer-token middleware around the given service
// with the context enrichment most handlers expect.
func NewTokenGate(ts TokenService) fiber.Handler {
	return tokenauth.New(tokenauth.Config{
		TokenValidator:  TokenValidatorAdapter{Service: ts},
		ContextEnricher: ContextEnricherAdapter,
	})
}
