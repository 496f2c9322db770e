package deskd

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// AssertionClaims is the wire shape of a federated identity assertion.
type AssertionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// FederatedVerifier validates assertions issued by the configured trusted
// issuer against its published JWKS. Keys are cached and refreshed in the
// background; a key that cannot be resolved fails closed.
type FederatedVerifier struct {
	issuer   string
	clientID string
	keyfunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	logger   Logger
}

// NewFederatedVerifier fetches the issuer's JWKS and returns a verifier.
// The initial fetch is synchronous so a bad URL surfaces at startup.
func NewFederatedVerifier(cfg Config, logger Logger) (*FederatedVerifier, error) {
	if logger == nil {
		logger = defLogger{}
	}

	if cfg.GetFederatedIssuer() == "" || cfg.GetFederatedJWKSURL() == "" {
		return nil, goerrors.New("federated issuer and JWKS URL are required", goerrors.CategoryBadInput)
	}

	jwks, err := keyfunc.Get(cfg.GetFederatedJWKSURL(), keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Warn("federated JWKS background refresh failed: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, WrapUpstream(err, "failed to fetch federated issuer JWKS")
	}

	return &FederatedVerifier{
		issuer:   cfg.GetFederatedIssuer(),
		clientID: cfg.GetFederatedClientID(),
		keyfunc:  jwks.Keyfunc,
		jwks:     jwks,
		logger:   logger,
	}, nil
}

// NewFederatedVerifierWithKeyfunc wires a verifier around an explicit key
// resolver. Used by tests and by deployments that pin keys statically.
func NewFederatedVerifierWithKeyfunc(issuer, clientID string, kf jwt.Keyfunc, logger Logger) *FederatedVerifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &FederatedVerifier{
		issuer:   issuer,
		clientID: clientID,
		keyfunc:  kf,
		logger:   logger,
	}
}

// Verify validates the assertion's signature, issuer, audience, and expiry,
// and returns verified claims only. Every failure collapses to
// ErrInvalidAssertion for the caller; the cause is kept for operator logs.
func (v *FederatedVerifier) Verify(ctx context.Context, assertion string) (*VerifiedAssertion, error) {
	if assertion == "" {
		return nil, ErrMissingAssertion
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256"}),
	}
	if v.clientID != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(v.clientID))
	}

	token, err := jwt.ParseWithClaims(assertion, &AssertionClaims{}, v.keyfunc, parserOptions...)
	if err != nil {
		v.logger.Info("federated assertion rejected: %s", err)
		return nil, invalidAssertion(err)
	}

	claims, ok := token.Claims.(*AssertionClaims)
	if !ok || !token.Valid {
		v.logger.Error("federated assertion produced no usable claims")
		return nil, ErrInvalidAssertion
	}

	if claims.Email == "" || claims.RegisteredClaims.Subject == "" {
		v.logger.Info("federated assertion missing email or subject claim")
		return nil, ErrInvalidAssertion
	}

	return &VerifiedAssertion{
		SubjectID: claims.RegisteredClaims.Subject,
		Email:     NormalizeEmail(claims.Email),
		Name:      claims.Name,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *FederatedVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func invalidAssertion(cause error) error {
	clone := ErrInvalidAssertion.Clone()
	clone.Source = cause
	return clone
}

var _ AssertionVerifier = (*FederatedVerifier)(nil)
