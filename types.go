package deskd

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds the operations of the authentication service
type Authenticator interface {
	Signup(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	FederatedLogin(ctx context.Context, assertion string) (*AuthResult, error)
	VerifyToken(ctx context.Context, token string) (*IdentitySummary, error)
	Profile(ctx context.Context, userID string) (*IdentitySummary, error)
}

// TokenService mints and validates session tokens
type TokenService interface {
	Issue(userID string) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the verified content of a session token
type AuthClaims interface {
	Subject() string
	UserID() string
	Expires() time.Time
	IssuedAt() time.Time
}

// AssertionVerifier validates an externally issued identity assertion and
// returns verified claims only
type AssertionVerifier interface {
	Verify(ctx context.Context, assertion string) (*VerifiedAssertion, error)
}

// VerifiedAssertion holds claims extracted from a validated assertion.
// Nothing here comes from the raw client payload.
type VerifiedAssertion struct {
	SubjectID string
	Email     string
	Name      string
}

// UserStore is the credential store consumed by the authentication service
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, record *User) (*User, error)
	LinkFederated(ctx context.Context, id string, subjectID string) (*User, error)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetFederatedIssuer() string
	GetFederatedJWKSURL() string
	GetFederatedClientID() string
	GetStoreTimeout() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] DESKD "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] DESKD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] DESKD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] DESKD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
