package deskd

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeMissingField       = "MISSING_FIELD"
	textCodeEmailTaken         = "EMAIL_TAKEN"
	textCodeInvalidCredentials = "INVALID_CREDENTIALS"
	textCodeMissingAssertion   = "MISSING_ASSERTION"
	textCodeInvalidAssertion   = "INVALID_ASSERTION"
	textCodeMissingToken       = "MISSING_TOKEN"
	textCodeInvalidToken       = "INVALID_TOKEN"
	textCodeTokenExpired       = "TOKEN_EXPIRED"
	textCodeTokenMalformed     = "TOKEN_MALFORMED"
	textCodeTokenSignature     = "TOKEN_SIGNATURE_INVALID"
	textCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	textCodeUpstreamFailure    = "UPSTREAM_FAILURE"
)

// ErrMissingField is returned when a required request field is absent.
var ErrMissingField = goerrors.New("missing required field", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingField).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when signup collides with an existing identity.
// The store's uniqueness constraint is the authoritative tie-breaker, so this
// also covers the losing side of a concurrent duplicate signup.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode(textCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials covers unknown email, wrong password, and
// federated-only accounts with no password. The three cases are deliberately
// indistinguishable to the caller.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingAssertion is returned when a federated login carries no assertion.
var ErrMissingAssertion = goerrors.New("missing identity assertion", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingAssertion).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidAssertion is returned for any assertion the verifier rejects:
// bad signature, wrong issuer or audience, expired, or missing claims.
var ErrInvalidAssertion = goerrors.New("invalid identity assertion", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidAssertion).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingToken is returned when token verification is called with no token.
var ErrMissingToken = goerrors.New("missing token", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingToken).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidToken is the single externally visible token failure. The
// expired/malformed/signature distinction stays in operator logging.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is the internal expiry failure from the token service.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is the internal parse failure from the token service.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenSignature is the internal signature failure from the token service.
var ErrTokenSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when an id no longer resolves to a user,
// including a structurally valid token whose subject has since been removed.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUpstream wraps store and issuer infrastructure failures. Internal detail
// goes to operator logging, never to the caller.
var ErrUpstream = goerrors.New("upstream dependency failure", goerrors.CategoryInternal).
	WithTextCode(textCodeUpstreamFailure).
	WithCode(goerrors.CodeInternal)

// WrapUpstream tags an infrastructure failure while keeping the cause for logs.
func WrapUpstream(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(textCodeUpstreamFailure).
		WithCode(goerrors.CodeInternal)
}

// HasTextCode reports whether err is a rich error carrying the given text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, textCodeTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return HasTextCode(err, textCodeTokenMalformed) ||
		strings.Contains(err.Error(), "token is malformed")
}
